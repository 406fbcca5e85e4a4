package aggregated

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		// Use JSON tag names for field names in errors
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		rules := map[string]validator.Func{
			"notblank": validators.NotBlank,
			"merchant_id": func(fl validator.FieldLevel) bool {
				return isMerchantID(fl.Field().String())
			},
			"web_url": func(fl validator.FieldLevel) bool {
				s := fl.Field().String()
				return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
			},
		}
		for tag, fn := range rules {
			if err := v.RegisterValidation(tag, fn); err != nil {
				panic(fmt.Sprintf("aggregated: failed to register validation %q: %v", tag, err))
			}
		}
		validate = v
	})
	return validate
}

func isMerchantID(id string) bool {
	return len(id) >= len(MerchantIDPrefix)+1 && strings.HasPrefix(id, MerchantIDPrefix)
}

// ValidateMerchantID checks the id format only; existence is a remote check.
func ValidateMerchantID(id string) error {
	switch {
	case id == "":
		return invalidConfiguration("aggregated_merchant_id: must not be empty")
	case !strings.HasPrefix(id, MerchantIDPrefix):
		return invalidConfiguration("aggregated_merchant_id: must start with '" + MerchantIDPrefix + "'")
	case !isMerchantID(id):
		return invalidConfiguration("aggregated_merchant_id: must be at least 4 characters")
	}
	return nil
}

// ValidateCreateRequest applies the creation rules before any network call.
func ValidateCreateRequest(req *CreateRequest) error {
	if req == nil {
		return invalidConfiguration("create request: must not be nil")
	}
	return validateStruct(req)
}

// ValidateUpdateRequest applies the update rules before any network call.
func ValidateUpdateRequest(req *UpdateRequest) error {
	if req == nil {
		return invalidConfiguration("update request: must not be nil")
	}
	return validateStruct(req)
}

// ValidateMetadata checks connector metadata, including that an explicit merchant id
// and auto-creation are not requested together.
func ValidateMetadata(md *Metadata) error {
	if md == nil {
		return nil
	}
	if md.AggregatedMerchantID != nil && md.AutoCreateAggregatedMerchant != nil && *md.AutoCreateAggregatedMerchant {
		return invalidConfiguration("aggregated_merchant_id: cannot be set while auto_create_aggregated_merchant is true")
	}
	return validateStruct(md)
}

func validateStruct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return invalidConfiguration(err.Error())
	}
	msgs := make([]string, 0, len(ves))
	for _, fe := range ves {
		msgs = append(msgs, fe.Field()+": "+getValidationMessage(fe))
	}
	return invalidConfiguration(strings.Join(msgs, "; "))
}

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "min":
		if isStringField(fe) {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if isStringField(fe) {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "merchant_id":
		return "must start with '" + MerchantIDPrefix + "' and be at least 4 characters"
	case "web_url":
		return "must start with http:// or https://"
	default:
		return "failed rule " + fe.Tag()
	}
}

func isStringField(fe validator.FieldError) bool {
	t := fe.Type()
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.String
}
