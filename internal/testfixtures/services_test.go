package testfixtures

import (
	"context"
	"testing"

	"github.com/example/therapist-scheduler/internal/application"
	"github.com/example/therapist-scheduler/internal/persistence"
)

type capturingTherapistStore struct {
	created persistence.Therapist
}

func (c *capturingTherapistStore) CreateTherapist(ctx context.Context, therapist persistence.Therapist) error {
	c.created = therapist
	return nil
}

func (c *capturingTherapistStore) UpdateTherapist(ctx context.Context, therapist persistence.Therapist) error {
	return nil
}

func (c *capturingTherapistStore) GetTherapist(ctx context.Context, id string) (persistence.Therapist, error) {
	return persistence.Therapist{}, persistence.ErrNotFound
}

func (c *capturingTherapistStore) ListTherapists(ctx context.Context) ([]persistence.Therapist, error) {
	return nil, nil
}

func TestServiceFactoryNewTherapistService(t *testing.T) {
	factory := NewServiceFactory()
	store := &capturingTherapistStore{}

	svc := factory.NewTherapistService(TherapistServiceDeps{Therapists: store})

	view, err := svc.CreateTherapist(context.Background(), application.TherapistInput{Name: "Dr. Lin"})
	if err != nil {
		t.Fatalf("CreateTherapist returned error: %v", err)
	}

	if view.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", view.ID)
	}
	if store.created.ID != view.ID {
		t.Fatalf("store received unexpected ID: %q", store.created.ID)
	}
	if view.Timezone != "Asia/Taipei" {
		t.Fatalf("expected default timezone, got %q", view.Timezone)
	}
	if !view.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), view.CreatedAt)
	}
}
