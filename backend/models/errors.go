package models

import "errors"

var (
	ErrSpecialityMismatch    = errors.New("teacher does not specialize in the course subject")
	ErrMaxAttempts           = errors.New("Maximum attempts reached for this SAQ.")
	ErrCertificateFutureDate = errors.New("Issue date cannot be in the future.")
	ErrTeacherNotFound       = errors.New("teacher not found")
	ErrSubmissionChanged     = errors.New("Submission was resubmitted during evaluation, evaluate it again.")
)
