package repository

import "errors"

var (
	// ErrVideoNotFound is returned when a video record cannot be found.
	ErrVideoNotFound = errors.New("video not found")

	// ErrCommentNotFound is returned when a reply targets a comment that does not exist.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrProfileNotFound is returned when a user has no profile document.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrObjectNotFound is returned when a storage key does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrQualityNotFound is returned when a registered variant is missing.
	ErrQualityNotFound = errors.New("quality variant not found")

	// ErrJobNotFound is returned when no quality job exists for a video.
	ErrJobNotFound = errors.New("quality job not found")

	// ErrDuplicateJob is returned when inserting a job whose ID already exists.
	ErrDuplicateJob = errors.New("quality job already exists")
)
