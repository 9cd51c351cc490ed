package completion

import "errors"

// ErrEmptyAPIKey indicates that the API key was not provided.
var ErrEmptyAPIKey = errors.New("API key is required")

// ErrEmptyResponse indicates the service returned no choices.
var ErrEmptyResponse = errors.New("no response from API")

// ErrNoJSON indicates a structured response held no JSON object or array.
var ErrNoJSON = errors.New("no JSON value in response")
