package workout

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/illegalcall/fitcoach/internal/apperrors"
	"github.com/illegalcall/fitcoach/internal/models"
)

// RequiredFields lists the top-level keys every routine answer must carry, in
// the order they are checked.
var RequiredFields = []string{"name", "description", "exercises", "tips", "progression"}

var (
	errNotAList   = errors.New("must be a list")
	errSetsNotPos  = errors.New("must be a positive integer")
)

// ValidateResponse parses raw model output into routine data. Invalid JSON
// yields *apperrors.MalformedResponseError; a missing key or a value of the
// wrong type yields *apperrors.SchemaViolationError. The exercises array is
// checked against models.Exercise and every sets value must be positive, but
// the array itself is kept exactly as the model wrote it.
func ValidateResponse(raw string) (*models.WorkoutRoutineData, error) {
	var parsed json.RawMessage
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &apperrors.MalformedResponseError{Raw: raw, Err: err}
	}

	doc := gjson.Parse(raw)
	for _, field := range RequiredFields {
		if !doc.IsObject() || !doc.Get(field).Exists() {
			return nil, &apperrors.SchemaViolationError{Field: field, Raw: raw}
		}
	}
	if !doc.Get("exercises").IsArray() {
		return nil, &apperrors.SchemaViolationError{Field: "exercises", Raw: raw, Err: errNotAList}
	}

	var data models.WorkoutRoutineData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, typeViolation(raw, err)
	}

	var typed struct {
		Exercises []models.Exercise `json:"exercises"`
	}
	if err := json.Unmarshal([]byte(raw), &typed); err != nil {
		return nil, typeViolation(raw, err)
	}
	for i, exercise := range typed.Exercises {
		if exercise.Sets <= 0 {
			return nil, &apperrors.SchemaViolationError{Field: fmt.Sprintf("exercises[%d].sets", i), Raw: raw, Err: errSetsNotPos}
		}
	}

	return &data, nil
}

func typeViolation(raw string, err error) error {
	field := "response"
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field = typeErr.Field
	}
	return &apperrors.SchemaViolationError{Field: field, Raw: raw, Err: err}
}
