package httpapi

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)
	registerOnce    sync.Once
)

// registerValidators adds the custom tags to gin's validator engine. The
// engine is process-wide, so this runs once.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			mustRegisterValidation(v, "username", validateUsername)
		}
	})
}

// mustRegisterValidation panics when the tag cannot be registered. A struct
// using an unknown tag would otherwise panic on its first bind.
func mustRegisterValidation(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("httpapi: register %q validation: %v", tag, err))
	}
}

func validateUsername(fl validator.FieldLevel) bool {
	return usernamePattern.MatchString(fl.Field().String())
}
