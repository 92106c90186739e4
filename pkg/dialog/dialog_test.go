package dialog

import (
	"encoding/json"
	"fmt"
	"testing"
)

func wrap(nodes string) string {
	return `<?xml version='1.0' encoding='UTF-8' standalone='yes' ?><hierarchy rotation="0">` + nodes + `</hierarchy>`
}

const appScreen = `<node class="android.widget.FrameLayout" package="com.example.app" bounds="[0,0][1080,1920]">
  <node class="android.widget.Button" package="com.example.app" resource-id="android:id/button1" text="OK" enabled="true" bounds="[0,0][100,100]"/>
</node>`

func crashDialog(enabled bool) string {
	return fmt.Sprintf(`<node class="android.widget.FrameLayout" package="android" bounds="[100,700][980,1200]">
  <node class="android.widget.TextView" package="android" resource-id="android:id/alertTitle" text="Example keeps stopping"/>
  <node class="android.widget.Button" package="android" resource-id="android:id/aerr_close" text="Close app" enabled="%t"/>
</node>`, enabled)
}

func permissionDialog(enabled bool) string {
	return fmt.Sprintf(`<node class="android.widget.FrameLayout" package="com.google.android.permissioncontroller" bounds="[0,0][1080,1920]">
  <node class="android.widget.TextView" package="com.google.android.permissioncontroller" resource-id="com.android.permissioncontroller:id/permission_message" text="Allow Example to access your location?"/>
  <node class="android.widget.Button" package="com.google.android.permissioncontroller" resource-id="com.android.permissioncontroller:id/permission_allow_foreground_only_button" text="While using the app" enabled="%t"/>
</node>`, enabled)
}

func TestClassify(t *testing.T) {
	ptr := func(s string) *string { return &s }

	tests := []struct {
		name string
		dump *string
		want ValidationResult
	}{
		{"null", nil, Null},
		{"empty", ptr(""), Empty},
		{"missing root", ptr(`<?xml version="1.0"?><node class="x"/>`), MissingRootPrefix},
		{"malformed", ptr(`<hierarchy rotation="0"><node class="a">`), Error},
		{"plain app screen", ptr(wrap(appScreen)), OK},
		{"crash ok enabled", ptr(wrap(appScreen + crashDialog(true))), AppHasStoppedDialogOKEnabled},
		{"crash ok disabled", ptr(wrap(crashDialog(false))), AppHasStoppedDialogOKDisabled},
		{"permission allow enabled", ptr(wrap(permissionDialog(true))), RuntimePermissionDialogAllowEnabled},
		{"permission allow disabled", ptr(wrap(permissionDialog(false))), RuntimePermissionDialogAllowDisabled},
		{"permission package without button", ptr(wrap(`<node class="a" package="com.android.permissioncontroller"/>`)), OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.dump); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationResult_Valid(t *testing.T) {
	valid := map[ValidationResult]bool{
		OK:                                   true,
		AppHasStoppedDialogOKEnabled:         true,
		AppHasStoppedDialogOKDisabled:        false,
		RuntimePermissionDialogAllowEnabled:  true,
		RuntimePermissionDialogAllowDisabled: false,
		MissingRootPrefix:                    false,
		Empty:                                false,
		Null:                                 false,
		Error:                                false,
	}
	for v, want := range valid {
		if v.Valid() != want {
			t.Errorf("%v.Valid() = %v, want %v", v, v.Valid(), want)
		}
		if v.Description() == "" {
			t.Errorf("%v has no description", v)
		}
	}

	unknown := ValidationResult(42)
	if unknown.Valid() || unknown.String() != "unknown" {
		t.Errorf("out-of-range result: Valid=%v String=%q", unknown.Valid(), unknown.String())
	}
}

func TestValidationResult_IsDialog(t *testing.T) {
	if OK.IsDialog() || Empty.IsDialog() {
		t.Error("non-dialog results reported as dialogs")
	}
	if !AppHasStoppedDialogOKDisabled.IsDialog() || !RuntimePermissionDialogAllowEnabled.IsDialog() {
		t.Error("dialog results not reported as dialogs")
	}
}

func TestValidationResult_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(map[string]ValidationResult{"result": MissingRootPrefix})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"result":"missing_root_prefix"}` {
		t.Errorf("Marshal() = %s", data)
	}
}

func TestValidationResult_UnmarshalText(t *testing.T) {
	var got struct {
		Result ValidationResult `json:"result"`
	}
	if err := json.Unmarshal([]byte(`{"result":"runtime_permission_allow_disabled"}`), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Result != RuntimePermissionDialogAllowDisabled {
		t.Errorf("Result = %v, want %v", got.Result, RuntimePermissionDialogAllowDisabled)
	}

	if err := json.Unmarshal([]byte(`{"result":"bogus"}`), &got); err == nil {
		t.Error("Unmarshal() of unknown name should fail")
	}
}
