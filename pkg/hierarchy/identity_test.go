package hierarchy

import "testing"

func TestJavaStringHash(t *testing.T) {
	tests := []struct {
		input string
		want  int32
	}{
		{"", 0},
		{"hello", 99162322},
		{"Aa", 2112},
		{"BB", 2112},
		{"\U0001F600", 1772899},
		{"//android.widget.FrameLayout[1]", 1785170555},
		{"The quick brown fox", -1739336029},
	}
	for _, tt := range tests {
		if got := JavaStringHash(tt.input); got != tt.want {
			t.Errorf("JavaStringHash(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestXXHash_Deterministic(t *testing.T) {
	a := XXHash("//android.widget.FrameLayout[1]")
	b := XXHash("//android.widget.FrameLayout[1]")
	if a != b {
		t.Errorf("XXHash not deterministic: %d != %d", a, b)
	}
	if XXHash("//android.widget.FrameLayout[2]") == a {
		t.Error("XXHash collided on sibling xpaths")
	}
}

func TestIdentify(t *testing.T) {
	xpath, hash := Identify(JavaStringHash, RootXpath, "android.widget.FrameLayout", 0, 0)
	if xpath != "//android.widget.FrameLayout[1]" {
		t.Errorf("xpath = %q, want //android.widget.FrameLayout[1]", xpath)
	}
	if hash != 1785170555 {
		t.Errorf("hash = %d, want 1785170555", hash)
	}

	child, _ := Identify(JavaStringHash, childXpath(xpath), "android.widget.Button", 2, 0)
	if child != "//android.widget.FrameLayout[1]/android.widget.Button[3]" {
		t.Errorf("child xpath = %q", child)
	}
}

func TestIdentify_RootIdxFolded(t *testing.T) {
	_, h0 := Identify(JavaStringHash, RootXpath, "android.widget.FrameLayout", 0, 0)
	_, h1 := Identify(JavaStringHash, RootXpath, "android.widget.FrameLayout", 0, 1)
	if h1 != h0+1 {
		t.Errorf("rootIdx 1 hash = %d, want %d", h1, h0+1)
	}
}

func TestHashScheme_Func(t *testing.T) {
	tests := []struct {
		scheme  HashScheme
		wantErr bool
	}{
		{"", false},
		{HashJava, false},
		{HashXX, false},
		{"XXHASH", false},
		{"md5", true},
	}
	for _, tt := range tests {
		fn, err := tt.scheme.Func()
		if (err != nil) != tt.wantErr {
			t.Errorf("HashScheme(%q).Func() error = %v, wantErr %v", tt.scheme, err, tt.wantErr)
		}
		if !tt.wantErr && fn == nil {
			t.Errorf("HashScheme(%q).Func() returned nil func", tt.scheme)
		}
	}
}
