package service

import (
	"context"
	"errors"
	"testing"

	"colab-review-server/internal/domain"

	"go.uber.org/zap"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		user        *domain.User
		profile     *domain.Profile
		wantOrg     string
		wantProfile *domain.Profile
	}{
		{
			name:    "stored profile wins",
			user:    &domain.User{ID: "u1", Email: "ada@example.com", Metadata: domain.UserMetadata{OrgID: "meta"}},
			profile: &domain.Profile{ID: "u1", FullName: "Ada", OrgID: "eng"},
			wantOrg: "eng",
		},
		{
			name:        "metadata fallback backfills profile",
			user:        &domain.User{ID: "u2", Email: "bob@example.com", Metadata: domain.UserMetadata{FullName: "Bob", OrgID: "ops"}},
			wantOrg:     "ops",
			wantProfile: &domain.Profile{ID: "u2", FullName: "Bob", OrgID: "ops"},
		},
		{
			name:        "email prefix fallback backfills profile",
			user:        &domain.User{ID: "u3", Email: "alice@example.com"},
			wantOrg:     "alice",
			wantProfile: &domain.Profile{ID: "u3", FullName: "alice@example.com", OrgID: "alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := newMockProfileRepository()
			if tt.profile != nil {
				profiles.profiles[tt.profile.ID] = tt.profile
			}
			r := NewOrganizationResolver(profiles, zap.NewNop())

			org, err := r.Resolve(context.Background(), tt.user)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if org != tt.wantOrg {
				t.Errorf("Resolve() = %q, want %q", org, tt.wantOrg)
			}

			r.Wait()
			if tt.wantProfile == nil {
				return
			}
			got, ok := profiles.get(tt.user.ID)
			if !ok {
				t.Fatal("Resolve() did not backfill a profile")
			}
			if *got != *tt.wantProfile {
				t.Errorf("backfilled profile = %+v, want %+v", got, tt.wantProfile)
			}
		})
	}
}

func TestResolveQueryFailure(t *testing.T) {
	profiles := newMockProfileRepository()
	profiles.findErr = errStoreDown
	r := NewOrganizationResolver(profiles, zap.NewNop())

	user := &domain.User{ID: "u1", Email: "alice@example.com"}
	org, err := r.Resolve(context.Background(), user)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("Resolve() error = %v, want store error", err)
	}
	if org != "" {
		t.Errorf("Resolve() = %q on failure", org)
	}
}

func TestResolveWithoutSession(t *testing.T) {
	r := NewOrganizationResolver(newMockProfileRepository(), zap.NewNop())
	if _, err := r.Resolve(context.Background(), nil); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Resolve(nil) error = %v, want ErrNotSignedIn", err)
	}
}

func TestResolveBackfillFailureIsNotFatal(t *testing.T) {
	profiles := newMockProfileRepository()
	profiles.createErr = errStoreDown
	r := NewOrganizationResolver(profiles, zap.NewNop())

	org, err := r.Resolve(context.Background(), &domain.User{ID: "u1", Email: "alice@example.com"})
	r.Wait()
	if err != nil || org != "alice" {
		t.Errorf("Resolve() = %q, %v", org, err)
	}
}

func TestEmailOrganization(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"alice@example.com", "alice"},
		{"a@b@c", "a"},
		{"noatsign", "noatsign"},
		{"@example.com", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := EmailOrganization(tt.email); got != tt.want {
			t.Errorf("EmailOrganization(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}
