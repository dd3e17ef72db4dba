package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult contains the result of an injection check on a value.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // Name of the value that failed the check
	ParamValue  any    // The value that was checked
}

// InjectionError reports a rejected identifier. The offending value is kept
// out of the message since it may be user supplied.
type InjectionError struct {
	Kind        string
	Fingerprint string
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("%s name rejected: looks like SQL injection (fingerprint %s)", e.Kind, e.Fingerprint)
}

// CheckParameterForInjection uses libinjection to detect SQL injection patterns
// in a value.
//
// Only string values are checked - numbers, booleans, and other types cannot
// contain SQL injection patterns and will return nil (no injection detected).
//
// Example:
//
//	// Safe value - no injection
//	result := CheckParameterForInjection("database", "test_cso_g")
//	// result == nil
//
//	// Injection attempt detected
//	result := CheckParameterForInjection("view", "x'; DROP TABLE listings--")
//	// result.IsSQLi == true
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	// Only check string values - numbers/booleans can't contain injection
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			ParamName:   paramName,
			ParamValue:  value,
		}
	}

	return nil
}

// CheckIdentifier rejects a database or view name part that libinjection
// classifies as SQL injection. Quoting already neutralises such names; this
// turns an obviously hostile value into a clear error instead of a confusing
// "does not exist" from the backend.
func CheckIdentifier(kind, value string) error {
	if result := CheckParameterForInjection(kind, value); result != nil {
		return &InjectionError{Kind: kind, Fingerprint: result.Fingerprint}
	}
	return nil
}
