package domain

import (
	"fmt"
	"strings"
	"time"
)

// OnboardingState represents the onboarding progress of a tenant
type OnboardingState string

const (
	OnboardingNotStarted OnboardingState = "not_started"
	OnboardingCompleted  OnboardingState = "completed"
)

// Tenant represents a registered account; the isolation unit for document
// ownership. A tenant is created on first login from its external identity
// claim and completes onboarding once profile fields are set.
type Tenant struct {
	ID               string
	ExternalIdentity string
	Email            string
	DisplayName      string
	CourseTag        *string
	Onboarding       OnboardingState
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewTenant creates a new Tenant instance in the not-started onboarding state
func NewTenant(id, externalIdentity, email string, createdAt time.Time) *Tenant {
	return &Tenant{
		ID:               id,
		ExternalIdentity: externalIdentity,
		Email:            email,
		Onboarding:       OnboardingNotStarted,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
}

// ValidateTenant validates a Tenant instance
func ValidateTenant(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("tenant cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("tenant ID is required")
	}

	if t.ExternalIdentity == "" {
		return fmt.Errorf("tenant ExternalIdentity is required")
	}

	if !isValidOnboardingState(t.Onboarding) {
		return fmt.Errorf("tenant Onboarding state is invalid: %s", t.Onboarding)
	}

	if t.CourseTag != nil && strings.TrimSpace(*t.CourseTag) == "" {
		return fmt.Errorf("tenant CourseTag cannot be blank when set")
	}

	return nil
}

// CompleteOnboarding sets the tenant's profile fields and transitions the
// onboarding state to completed. The course tag is required; the display
// name is kept when empty.
func (t *Tenant) CompleteOnboarding(displayName, courseTag string, at time.Time) error {
	courseTag = strings.TrimSpace(courseTag)
	if courseTag == "" {
		return ErrMissingCourseTag
	}

	if displayName = strings.TrimSpace(displayName); displayName != "" {
		t.DisplayName = displayName
	}
	t.CourseTag = &courseTag
	t.Onboarding = OnboardingCompleted
	t.UpdatedAt = at

	return nil
}

// isValidOnboardingState checks if an OnboardingState is valid
func isValidOnboardingState(s OnboardingState) bool {
	switch s {
	case OnboardingNotStarted, OnboardingCompleted:
		return true
	}
	return false
}
