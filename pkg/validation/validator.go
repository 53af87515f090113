package validation

import (
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/dd0wney/cluso-sketch/pkg/board"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// Validation constants
	MinStrokeWidth  = 1.0
	MaxStrokeWidth  = 20.0
	MaxStrokePoints = 10000
	MaxBatchPoints  = 500
	MaxNameLength   = 32

	// DefaultCoordinateBound is the absolute coordinate limit used when the
	// caller does not supply one
	DefaultCoordinateBound = 100000.0

	// colorPattern matches a strict hex triplet or sextet, e.g. #fff or #1a2b3c
	colorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

	// knownTools is the set of accepted tool tags
	knownTools = map[string]bool{
		"pen":         true,
		"marker":      true,
		"highlighter": true,
		"eraser":      true,
	}
)

func init() {
	validate = validator.New()
}

// StrokeRequest represents a request to commit a draw or erase stroke
type StrokeRequest struct {
	Points []board.Point `json:"points" validate:"required,min=1"`
	Color  string        `json:"color" validate:"required"`
	Width  float64       `json:"width" validate:"required,min=1,max=20"`
	Tool   string        `json:"tool" validate:"required"`
}

// StreamRequest represents a pre-commit batch of points for an in-flight stroke
type StreamRequest struct {
	StrokeID string        `json:"strokeId" validate:"required"`
	Points   []board.Point `json:"points" validate:"required,min=1"`
}

// ValidateStroke validates a stroke commit request. A failure never
// partially applies; the returned error carries a reason string that is
// surfaced to the originating client only.
func ValidateStroke(req *StrokeRequest, coordinateBound float64) error {
	if req == nil {
		return errors.New("stroke request cannot be nil")
	}
	if coordinateBound <= 0 {
		coordinateBound = DefaultCoordinateBound
	}

	// Validate using struct tags
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if len(req.Points) > MaxStrokePoints {
		return fmt.Errorf("Points: maximum %d points allowed, got %d", MaxStrokePoints, len(req.Points))
	}

	if err := validatePoints(req.Points, coordinateBound); err != nil {
		return fmt.Errorf("Points: %w", err)
	}

	if !colorPattern.MatchString(req.Color) {
		return fmt.Errorf("Color: '%s' is not a hex color (expected #rgb or #rrggbb)", req.Color)
	}

	if !knownTools[req.Tool] {
		return fmt.Errorf("Tool: '%s' is not a known tool", req.Tool)
	}

	return nil
}

// ValidateStream validates a streaming point batch for an in-flight stroke
func ValidateStream(req *StreamRequest, coordinateBound float64) error {
	if req == nil {
		return errors.New("stream request cannot be nil")
	}
	if coordinateBound <= 0 {
		coordinateBound = DefaultCoordinateBound
	}

	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	if len(req.Points) > MaxBatchPoints {
		return fmt.Errorf("Points: maximum %d points per batch, got %d", MaxBatchPoints, len(req.Points))
	}

	if err := validatePoints(req.Points, coordinateBound); err != nil {
		return fmt.Errorf("Points: %w", err)
	}

	return nil
}

// ValidateCursor validates a cursor position update
func ValidateCursor(p board.Point, coordinateBound float64) error {
	if coordinateBound <= 0 {
		coordinateBound = DefaultCoordinateBound
	}
	return validatePoints([]board.Point{p}, coordinateBound)
}

// ValidateName validates a participant display name
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name exceeds maximum length of %d characters", MaxNameLength)
	}
	return nil
}

// validatePoints checks that every point is finite and within the bound
func validatePoints(points []board.Point, bound float64) error {
	for i, p := range points {
		if math.IsNaN(p.X) || math.IsInf(p.X, 0) || math.IsNaN(p.Y) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("point at index %d is not finite", i)
		}
		if math.Abs(p.X) > bound || math.Abs(p.Y) > bound {
			return fmt.Errorf("point at index %d is outside coordinate bound %g", i, bound)
		}
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
