package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// PasswordSymbols is the set of symbols a password must draw at least one character from.
const PasswordSymbols = "@$!%*?&"

var (
	once         sync.Once
	pwdCharsRe   = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]+$`)
	noWhitespace = regexp.MustCompile(`^\S+$`)
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON (or form) tag names in errors.
// - Registers alias tags and the account-specific validators.
func Init() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			register(v)
		}
	})
}

func register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	_ = v.RegisterValidation("pwdchars", func(fl validator.FieldLevel) bool {
		return pwdCharsRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("nowhitespace", func(fl validator.FieldLevel) bool {
		return noWhitespace.MatchString(fl.Field().String())
	})
	v.RegisterAlias("strongpwd", "min=8,containsany=abcdefghijklmnopqrstuvwxyz,containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ,containsany=0123456789,containsany="+PasswordSymbols+",pwdchars")
	v.RegisterAlias("username", "min=6,max=128,nowhitespace")
	v.RegisterAlias("phone", "e164")
}

// CheckFile reports a details map when the uploaded file is missing or larger than maxBytes.
func CheckFile(field string, fh *multipart.FileHeader, maxBytes int64) map[string]string {
	if fh == nil {
		return map[string]string{field: "is required"}
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return map[string]string{field: fmt.Sprintf("must be at most %d bytes", maxBytes)}
	}
	return nil
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "e164", "phone":
		return "must be a valid phone number"
	case "uuid":
		return "must be a valid UUID"
	case "strongpwd":
		return "must be at least 8 characters and contain a lowercase letter, an uppercase letter, a digit and one of " + PasswordSymbols
	case "pwdchars":
		return "may only contain letters, digits and " + PasswordSymbols
	case "username":
		return "must be at least 6 characters long without whitespace"
	case "nowhitespace":
		return "cannot contain whitespace"
	case "containsany":
		return "must contain at least one of: " + param
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Var validates a single value against tag using the binding engine and
// returns details keyed by field, or nil when the value is valid.
func Var(field string, value any, tag string) map[string]string {
	Init()
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return varDetails(v, field, value, tag)
}

func varDetails(v *validator.Validate, field string, value any, tag string) map[string]string {
	err := v.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return map[string]string{field: formatFieldError(verrs[0])}
	}
	return map[string]string{field: "is invalid"}
}
