// Package dialog classifies raw window dumps before they are used, flagging
// empty or truncated dumps and the system dialogs that block an app screen.
package dialog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/devicelab-dev/droidscan/pkg/hierarchy"
	"github.com/devicelab-dev/droidscan/pkg/tree"
)

// RootPrefix starts the root element of every uiautomator dump.
const RootPrefix = "<hierarchy rotation"

// ValidationResult is the closed set of dump classifications.
type ValidationResult int

const (
	OK ValidationResult = iota
	AppHasStoppedDialogOKEnabled
	AppHasStoppedDialogOKDisabled
	RuntimePermissionDialogAllowEnabled
	RuntimePermissionDialogAllowDisabled
	MissingRootPrefix
	Empty
	Null
	Error
)

var results = []struct {
	name        string
	valid       bool
	description string
}{
	OK:                                   {"ok", true, "well-formed dump that is not an 'app has stopped' dialog"},
	AppHasStoppedDialogOKEnabled:         {"app_has_stopped_ok_enabled", true, "'app has stopped' dialog with the OK button enabled"},
	AppHasStoppedDialogOKDisabled:        {"app_has_stopped_ok_disabled", false, "'app has stopped' dialog with the OK button disabled"},
	RuntimePermissionDialogAllowEnabled:  {"runtime_permission_allow_enabled", true, "runtime permission dialog with the Allow button enabled"},
	RuntimePermissionDialogAllowDisabled: {"runtime_permission_allow_disabled", false, "runtime permission dialog with the Allow button disabled"},
	MissingRootPrefix:                    {"missing_root_prefix", false, "dump does not contain the root node prefix " + RootPrefix},
	Empty:                                {"empty", false, "dump is empty"},
	Null:                                 {"null", false, "no dump was produced"},
	Error:                                {"error", false, "dump could not be classified"},
}

// Valid reports whether a dump with this classification can be used.
func (v ValidationResult) Valid() bool {
	if v < 0 || int(v) >= len(results) {
		return false
	}
	return results[v].valid
}

// Description returns a human-readable explanation.
func (v ValidationResult) Description() string {
	if v < 0 || int(v) >= len(results) {
		return results[Error].description
	}
	return results[v].description
}

func (v ValidationResult) String() string {
	if v < 0 || int(v) >= len(results) {
		return "unknown"
	}
	return results[v].name
}

// MarshalText encodes the result by name.
func (v ValidationResult) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a name written by MarshalText.
func (v *ValidationResult) UnmarshalText(text []byte) error {
	for i, r := range results {
		if r.name == string(text) {
			*v = ValidationResult(i)
			return nil
		}
	}
	return fmt.Errorf("unknown validation result %q", text)
}

// IsDialog reports whether the result names a blocking system dialog.
func (v ValidationResult) IsDialog() bool {
	switch v {
	case AppHasStoppedDialogOKEnabled, AppHasStoppedDialogOKDisabled,
		RuntimePermissionDialogAllowEnabled, RuntimePermissionDialogAllowDisabled:
		return true
	default:
		return false
	}
}

// Markers identifying the system dialogs.
var (
	// AppHasStoppedButtons are resource ids of the button that dismisses a
	// crash or ANR dialog, owned by the "android" package.
	AppHasStoppedButtons = []string{
		"android:id/aerr_close",
		"android:id/aerr_wait",
		"android:id/button1",
	}

	// AppHasStoppedTexts are lower-case fragments of crash dialog titles.
	AppHasStoppedTexts = []string{
		"has stopped",
		"keeps stopping",
		"isn't responding",
	}

	// PermissionPackages own the runtime permission dialog.
	PermissionPackages = []string{
		"com.android.packageinstaller",
		"com.google.android.packageinstaller",
		"com.android.permissioncontroller",
		"com.google.android.permissioncontroller",
	}

	// PermissionAllowButtons are resource id suffixes of the Allow button.
	PermissionAllowButtons = []string{
		":id/permission_allow_button",
		":id/permission_allow_foreground_only_button",
		":id/permission_allow_one_time_button",
	}
)

// Classify inspects a raw dump. A nil dump means the device produced none.
func Classify(dump *string) ValidationResult {
	switch {
	case dump == nil:
		return Null
	case *dump == "":
		return Empty
	case !strings.Contains(*dump, RootPrefix):
		return MissingRootPrefix
	}

	t, err := tree.ParseString(*dump, nil)
	if err != nil {
		return Error
	}
	return classifyTree(t)
}

func classifyTree(t *tree.Tree) ValidationResult {
	var (
		crash, permission        bool
		crashButton, allowButton *hierarchy.NodeInfo
	)

	t.Walk(func(_ *tree.Node, info hierarchy.NodeInfo) bool {
		id := info.ResourceID
		if strings.HasPrefix(id, "android:id/aerr_") || containsAny(strings.ToLower(info.Text), AppHasStoppedTexts) {
			crash = true
		}
		if slices.Contains(PermissionPackages, info.PackageName) {
			permission = true
		}

		if crashButton == nil && info.PackageName == "android" && slices.Contains(AppHasStoppedButtons, id) {
			crashButton = &info
		}
		if allowButton == nil && hasAnySuffix(id, PermissionAllowButtons) {
			allowButton = &info
		}
		return true
	})

	switch {
	case crash && crashButton != nil:
		if crashButton.Enabled {
			return AppHasStoppedDialogOKEnabled
		}
		return AppHasStoppedDialogOKDisabled
	case permission && allowButton != nil:
		if allowButton.Enabled {
			return RuntimePermissionDialogAllowEnabled
		}
		return RuntimePermissionDialogAllowDisabled
	default:
		return OK
	}
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}
