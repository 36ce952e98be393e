package usecases

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/practice-sem-2/chat-rooms-service/internal/models"
)

var validate = validator.New()

func ValidateCaller(caller *models.Caller) error {
	if caller == nil {
		return ErrAuthenticationRequired
	}
	if err := validate.Struct(caller); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationRequired, err)
	}
	return nil
}
