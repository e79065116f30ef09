package domain

import "errors"

var (
	ErrRecordNotFound        = errors.New("record not found")
	ErrHoldNotFound          = errors.New("hold not found or has expired")
	ErrNotHoldOwner          = errors.New("hold belongs to another user")
	ErrLockNotAcquired       = errors.New("seat combination is locked by another request")
	ErrInvalidKindTransition = errors.New("hold kind can only advance from temporary to processing_payment")
	ErrTransientStore        = errors.New("store temporarily unavailable")
)
