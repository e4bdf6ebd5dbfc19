package models

import (
	"net/http"
)

// ErrorKind groups application errors by the failure they describe
type ErrorKind string

const (
	KindValidation         ErrorKind = "ValidationError"
	KindDuplicate          ErrorKind = "DuplicateRegistration"
	KindNotFound           ErrorKind = "NotFound"
	KindInvalidCredentials ErrorKind = "InvalidCredentials"
	KindAccountNotApproved ErrorKind = "AccountNotApproved"
	KindOutOfStock         ErrorKind = "OutOfStock"
	KindTokenInvalid       ErrorKind = "TokenInvalid"
	KindForbidden          ErrorKind = "Forbidden"
	KindBusinessRule       ErrorKind = "BusinessRuleViolation"
	KindInvalidTransition  ErrorKind = "InvalidTransition"
	KindPartialOrder       ErrorKind = "PartialOrder"
	KindPartialTransition  ErrorKind = "PartialTransition"
	KindServerError        ErrorKind = "ServerError"
)

// AppError represents a typed failure returned to the request boundary
type AppError struct {
	Kind    ErrorKind `json:"-"`
	Status  int       `json:"-"`
	Code    string    `json:"code"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

// NewAppError creates a new application error with the given attributes
func NewAppError(kind ErrorKind, status int, code, errType, message string, details any) *AppError {
	return &AppError{
		Kind:    kind,
		Status:  status,
		Code:    code,
		Type:    errType,
		Message: message,
		Details: details,
	}
}

func (e *AppError) Error() string {
	return e.Message
}

// Is matches errors created from the same template regardless of details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Code == e.Code
}

// WithDetails returns a copy of the error carrying details
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// NewValidationError builds a 400 from the list of failed constraints.
// The first constraint doubles as the message.
func NewValidationError(details []string) *AppError {
	message := "Incomplete or invalid request body"
	if len(details) > 0 {
		message = details[0]
	}
	return NewAppError(KindValidation, http.StatusBadRequest, "1000", "ValidationError", message, details)
}

// Predefined errors
var (
	// Accounts
	ErrEmailInUse = NewAppError(KindDuplicate, http.StatusConflict, "1100", "SIGNUP",
		"Duplicate Registration. Email already in use", nil)
	ErrTelInUse = NewAppError(KindDuplicate, http.StatusConflict, "1101", "SIGNUP",
		"Phone number already in use", nil)
	ErrInvalidPassword = NewAppError(KindInvalidCredentials, http.StatusNotAcceptable, "1102", "PASSWORD",
		"Invalid password", "Provided password is incorrect")
	ErrRiderNotApproved = NewAppError(KindAccountNotApproved, http.StatusNotAcceptable, "1103", "RIDER",
		"Rider account is not approved",
		"Rider account is not approved. Rider can only access their account after approval")
	ErrAccountNotFound = NewAppError(KindNotFound, http.StatusNotFound, "1104", "LOGIN",
		"account not found", nil)
	ErrRiderDisabled = NewAppError(KindAccountNotApproved, http.StatusNotAcceptable, "1105", "RIDER",
		"Rider account is disabled", "Rider account has been suspended by an admin")

	// Catalog and orders
	ErrServer = NewAppError(KindServerError, http.StatusInternalServerError, "1200", "SERVER",
		"Server Error", nil)
	ErrFoodNotFound = NewAppError(KindNotFound, http.StatusNotFound, "1201", "ORDER",
		"Food Not Found", "food with the given id was not found")
	ErrOutOfStock = NewAppError(KindOutOfStock, http.StatusConflict, "1202", "ORDER",
		"Food out of stock", "This food is out of stock")
	ErrPartialOrder = NewAppError(KindPartialOrder, http.StatusInternalServerError, "1203", "ORDER",
		"Order was created without a delivery", nil)
	ErrDeliveryNotFound = NewAppError(KindNotFound, http.StatusNotFound, "1204", "DELIVERY",
		"Delivery not found", "This delivery was not found")
	ErrOrderNotFound = NewAppError(KindNotFound, http.StatusNotFound, "1205", "ORDER",
		"Order not found", "This Order was not found")
	ErrNoOrders = NewAppError(KindNotFound, http.StatusNotFound, "1206", "ORDER",
		"No orders found", "This user hasn't made any order yet")
	ErrFoodExists = NewAppError(KindDuplicate, http.StatusConflict, "1207", "FOOD",
		"Food Already Exists", "food with the same name already exists")
	ErrMissingImage = NewAppError(KindValidation, http.StatusBadRequest, "1208", "CREATE-FOOD",
		"Missing image", "Please upload at least one image for the food item")

	// Riders and deliveries
	ErrRiderNotFound = NewAppError(KindNotFound, http.StatusNotFound, "1300", "ADMIN",
		"Rider not found", "Rider with given 'riderId' not found")
	ErrApprovalNotNeeded = NewAppError(KindBusinessRule, http.StatusBadRequest, "1301", "ADMIN",
		"Approval not needed", "Approval is not needed for this rider")
	ErrRiderNotAvailable = NewAppError(KindBusinessRule, http.StatusBadRequest, "1302", "RIDER",
		"rider not available", "Rider must be AVAILABLE to pick up a delivery")
	ErrRiderBusy = NewAppError(KindBusinessRule, http.StatusBadRequest, "1303", "RIDER",
		"rider is busy", "Availability cannot change while a delivery is in progress")
	ErrInvalidTransition = NewAppError(KindInvalidTransition, http.StatusConflict, "1304", "DELIVERY",
		"Invalid delivery status transition", nil)
	ErrNotAssignedRider = NewAppError(KindForbidden, http.StatusForbidden, "1305", "DELIVERY",
		"Delivery is not assigned to this rider", nil)
	ErrPartialTransition = NewAppError(KindPartialTransition, http.StatusInternalServerError, "1306", "DELIVERY",
		"Delivery and rider availability are out of sync", nil)
	ErrSuspendNotAllowed = NewAppError(KindBusinessRule, http.StatusBadRequest, "1307", "ADMIN",
		"Rider cannot change status", nil)

	// Boundary
	ErrTokenInvalid = NewAppError(KindTokenInvalid, http.StatusBadRequest, "1400", "AUTH",
		"Cannot verify token. token is invalid or expired", nil)
	ErrWrongRole = NewAppError(KindForbidden, http.StatusForbidden, "1401", "AUTH",
		"Operation not permitted for this account", nil)
	ErrInvalidFile = NewAppError(KindValidation, http.StatusBadRequest, "ADERFL1001", "FILE",
		"Invalid image type", "Unsupported image or file format. only accepts jpeg, jpg, png images")
	ErrFileTooLarge = NewAppError(KindValidation, http.StatusBadRequest, "ADERFL1002", "FILE",
		"File too large", nil)
	ErrTooManyFiles = NewAppError(KindValidation, http.StatusBadRequest, "ADERFL1003", "FILE",
		"Too many files", nil)
)
