package orders

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ItemInput struct {
	ProductID int64 `json:"product_id" validate:"gt=0"`
	// batas atas = kolom order_items.order_amount (INTEGER)
	Amount int `json:"amount" validate:"gt=0,lte=2147483647"`
}

type PlaceOrderRequest struct {
	CustomerName    string      `json:"customer_name" validate:"required,max=150"`
	StoreID         int64       `json:"toko_id" validate:"gt=0"`
	PaymentMethodID int64       `json:"payment_id" validate:"gt=0"`
	Items           []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required,oneof=pending paid completed cancelled"`
}

// Validator checks request structs and reports every violated field, not only the first one.
// Safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	// pakai nama json supaya field error sama dengan body request
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

func (vl *Validator) ValidatePlaceOrder(req PlaceOrderRequest) error {
	return vl.Struct(req)
}

func (vl *Validator) Struct(s any) error {
	err := vl.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Internal(fmt.Errorf("validate: %w", err))
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		fields = append(fields, FieldError{
			Field:   path,
			Rule:    fe.Tag(),
			Message: fieldMessage(path, fe),
		})
	}
	return ValidationError(fields...)
}

// "PlaceOrderRequest.items[0].amount" -> "items[0].amount"
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return field + " must be a positive number"
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	default:
		return field + " is invalid"
	}
}
