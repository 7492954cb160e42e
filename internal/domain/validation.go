package domain

// ValidationResult resultado de validar una transición u operación.
// Errors impide ejecutar; Warnings se reporta pero no bloquea.
type ValidationResult struct {
	Valid    bool
	Errors   []Violation
	Warnings []Violation
}

// AddError acumula un error y marca el resultado inválido.
func (r *ValidationResult) AddError(code, field, message string) {
	r.Errors = append(r.Errors, Violation{Code: code, Field: field, Message: message})
	r.Valid = false
}

// AddWarning acumula una advertencia sin invalidar.
func (r *ValidationResult) AddWarning(code, field, message string) {
	r.Warnings = append(r.Warnings, Violation{Code: code, Field: field, Message: message})
}

// NewValidationResult resultado válido vacío.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{Valid: true}
}

// AsError convierte los errores acumulados en ConstraintViolationError, o nil
// si el resultado es válido.
func (r *ValidationResult) AsError() error {
	if r.Valid {
		return nil
	}
	return &ConstraintViolationError{Violations: r.Errors}
}
