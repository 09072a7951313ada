package http

import "fleetmon-server/internal/adapters/http/validator"

var validate = validator.NewValidator()

func ValidateStruct(payload any) map[string]string {
	return validate.Validate(payload)
}
