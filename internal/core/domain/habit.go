package domain

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrHabitNameEmpty     = errors.New("habit name cannot be empty")
	ErrHabitNameTooLong   = errors.New("habit name is too long (max 100 chars)")
	ErrHabitIDEmpty       = errors.New("habit id cannot be empty")
	ErrHabitInvalidUserID = errors.New("invalid user id")
	ErrInvalidColor       = errors.New("invalid color tag")
	ErrInvalidIcon        = errors.New("invalid icon tag")
	ErrEmptyUpdate        = errors.New("update must change at least one field")
	ErrAlreadyCompleted   = errors.New("habit already completed today")
)

const (
	ColorRed    = "RED"
	ColorBlue   = "BLUE"
	ColorGreen  = "GREEN"
	ColorYellow = "YELLOW"
	ColorPurple = "PURPLE"
	ColorPink   = "PINK"

	IconWeights    = "WEIGHTS"
	IconBook       = "BOOK"
	IconSave       = "SAVE"
	IconMeditation = "MEDITATION"
	IconRunning    = "RUNNING"
	IconBike       = "BIKE"
	IconHanger     = "HANGER"
	IconCutlery    = "CUTLERY"
	IconFont       = "FONT"
	IconWater      = "WATER"
	IconMoon       = "MOON"
	IconCar        = "CAR"
	IconPencil     = "PENCIL"
	IconCode       = "CODE"

	DefaultColor = ColorBlue
	DefaultIcon  = IconBook
	MaxNameLen   = 100

	// TimestampLayout is the wire format of completion timestamps.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

var Colors = []string{ColorRed, ColorBlue, ColorGreen, ColorYellow, ColorPurple, ColorPink}

var Icons = []string{
	IconWeights, IconBook, IconSave, IconMeditation, IconRunning, IconBike, IconHanger,
	IconCutlery, IconFont, IconWater, IconMoon, IconCar, IconPencil, IconCode,
}

func IsKnownColor(c string) bool { return slices.Contains(Colors, c) }

func IsKnownIcon(i string) bool { return slices.Contains(Icons, i) }

var validate = validator.New(validator.WithRequiredStructEnabled())

// Habit is the server-authoritative view of a habit as exchanged on the wire.
// Streaks and completion dates are owned by the remote service.
type Habit struct {
	ID              string   `json:"id"`
	Name            string   `json:"nome"`
	Color           string   `json:"cor"`
	Icon            string   `json:"icone"`
	CurrentStreak   int      `json:"sequenciaAtual"`
	LongestStreak   int      `json:"maiorSequencia"`
	CompletionDates []string `json:"datasDeConclusao"`
}

// Clone returns a deep copy so callers never share the completion slice.
func (h Habit) Clone() Habit {
	c := h
	if h.CompletionDates != nil {
		c.CompletionDates = slices.Clone(h.CompletionDates)
	}
	return c
}

type CreateHabitInput struct {
	Name  string `json:"nome" validate:"required,max=100"`
	Color string `json:"cor"`
	Icon  string `json:"icone"`
}

// Normalize trims the name, fills the default tags and validates the result.
func (in CreateHabitInput) Normalize() (CreateHabitInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.ToUpper(strings.TrimSpace(in.Color))
	in.Icon = strings.ToUpper(strings.TrimSpace(in.Icon))
	if in.Color == "" {
		in.Color = DefaultColor
	}
	if in.Icon == "" {
		in.Icon = DefaultIcon
	}

	if err := validate.Struct(in); err != nil {
		return in, translateValidation(err)
	}
	return in, nil
}

// UpdateHabitInput is a partial update; nil fields are left untouched.
type UpdateHabitInput struct {
	Name  *string `json:"nome,omitempty" validate:"omitempty,min=1,max=100"`
	Color *string `json:"cor,omitempty"`
	Icon  *string `json:"icone,omitempty"`
}

func (in UpdateHabitInput) IsEmpty() bool {
	return in.Name == nil && in.Color == nil && in.Icon == nil
}

func (in UpdateHabitInput) Normalize() (UpdateHabitInput, error) {
	if in.IsEmpty() {
		return in, ErrEmptyUpdate
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Color != nil {
		color := strings.ToUpper(strings.TrimSpace(*in.Color))
		in.Color = &color
	}
	if in.Icon != nil {
		icon := strings.ToUpper(strings.TrimSpace(*in.Icon))
		in.Icon = &icon
	}

	if err := validate.Struct(in); err != nil {
		return in, translateValidation(err)
	}
	return in, nil
}

func translateValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		if fe.Field() != "Name" {
			continue
		}
		if fe.Tag() == "max" {
			return ErrHabitNameTooLong
		}
		return ErrHabitNameEmpty
	}
	return err
}

// HabitRecord is the reference service's stored form of a habit.
type HabitRecord struct {
	Habit
	UserID    string    `json:"-" db:"user_id"`
	SortOrder int       `json:"-" db:"sort_order"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

func NewHabitRecord(userID string, in CreateHabitInput) (*HabitRecord, error) {
	if userID == "" {
		return nil, ErrHabitInvalidUserID
	}

	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	if !IsKnownColor(in.Color) {
		return nil, ErrInvalidColor
	}
	if !IsKnownIcon(in.Icon) {
		return nil, ErrInvalidIcon
	}

	now := time.Now().UTC()

	return &HabitRecord{
		Habit: Habit{
			ID:              uuid.New().String(),
			Name:            in.Name,
			Color:           in.Color,
			Icon:            in.Icon,
			CompletionDates: []string{},
		},
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Apply merges a partial update into the record.
func (r *HabitRecord) Apply(in UpdateHabitInput) error {
	in, err := in.Normalize()
	if err != nil {
		return err
	}
	if in.Color != nil && !IsKnownColor(*in.Color) {
		return ErrInvalidColor
	}
	if in.Icon != nil && !IsKnownIcon(*in.Icon) {
		return ErrInvalidIcon
	}

	if in.Name != nil {
		r.Name = *in.Name
	}
	if in.Color != nil {
		r.Color = *in.Color
	}
	if in.Icon != nil {
		r.Icon = *in.Icon
	}
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// CompletionTimes parses the stored completion timestamps, skipping bad entries.
func (r *HabitRecord) CompletionTimes() []time.Time {
	times := make([]time.Time, 0, len(r.CompletionDates))
	for _, s := range r.CompletionDates {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			continue
		}
		times = append(times, t)
	}
	return times
}

// Complete records a completion at now. Only one completion per UTC day is
// admitted.
func (r *HabitRecord) Complete(now time.Time) error {
	now = now.UTC()
	today := now.Format(time.DateOnly)
	for _, t := range r.CompletionTimes() {
		if t.UTC().Format(time.DateOnly) == today {
			return ErrAlreadyCompleted
		}
	}

	r.CompletionDates = append(r.CompletionDates, now.Format(TimestampLayout))
	r.RecalculateStreaks(now)
	r.UpdatedAt = now
	return nil
}

// RecalculateStreaks refreshes the streak fields. The longest streak never
// decreases.
func (r *HabitRecord) RecalculateStreaks(now time.Time) {
	current, longest := CalculateStreaks(r.CompletionTimes(), now)
	r.CurrentStreak = current
	if longest > r.LongestStreak {
		r.LongestStreak = longest
	}
}
