package service

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/honeynil/PaymentLedgerService/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkInput runs struct tag validation and reports every failing field in a
// single ErrInvalidInput.
func checkInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", pkgerrors.ErrInvalidInput, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", pkgerrors.ErrInvalidInput, strings.Join(fields, ", "))
}
