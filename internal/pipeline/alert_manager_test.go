package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coldchain/compliance/internal/domain"
)

func TestAlertManager_ResolveRequiresNote(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "shp-1", domain.CategoryFrozen, nil)
	res := h.ingestAt(t, "shp-1", -14, 0)

	for _, note := range []string{"", "   ", "\t\n"} {
		_, err := h.alerts.Resolve(ctx, domain.ResolveInput{AlertID: res.AlertID, ResolvedBy: "ops", Note: note})
		assert.True(t, domain.IsKind(err, domain.KindValidation), "note %q", note)
	}

	alert, err := h.store.GetAlert(ctx, res.AlertID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertPending, alert.Status)
	assert.Nil(t, alert.ResolvedAt)
}

func TestAlertManager_ResolveRequiresResolver(t *testing.T) {
	h := newHarness(t)
	h.register(t, "shp-1", domain.CategoryFrozen, nil)
	res := h.ingestAt(t, "shp-1", -14, 0)

	_, err := h.alerts.Resolve(context.Background(), domain.ResolveInput{AlertID: res.AlertID, ResolvedBy: " ", Note: "checked"})
	assert.True(t, domain.IsKind(err, domain.KindValidation))
}

func TestAlertManager_ResolveTwiceConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, "shp-1", domain.CategoryFrozen, nil)
	res := h.ingestAt(t, "shp-1", -14, 0)

	in := domain.ResolveInput{AlertID: res.AlertID, ResolvedBy: "ops", Note: " door resealed "}
	first, err := h.alerts.Resolve(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "door resealed", *first.ResolutionNote)

	_, err = h.alerts.Resolve(ctx, in)
	assert.True(t, domain.IsKind(err, domain.KindConflict))
}

func TestAlertManager_ConcurrentResolveOneWins(t *testing.T) {
	h := newHarness(t)
	h.register(t, "shp-1", domain.CategoryFrozen, nil)
	res := h.ingestAt(t, "shp-1", -14, 0)

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = h.alerts.Resolve(context.Background(), domain.ResolveInput{
				AlertID:    res.AlertID,
				ResolvedBy: fmt.Sprintf("ops-%d", i),
				Note:       "sensor swapped",
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.IsKind(err, domain.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, []domain.AlertEventType{domain.AlertOpened, domain.AlertClosed}, h.sink.eventTypes())
}

func TestAlertManager_ResolveUnknownAlert(t *testing.T) {
	h := newHarness(t)

	_, err := h.alerts.Resolve(context.Background(), domain.ResolveInput{AlertID: "missing", ResolvedBy: "ops", Note: "n/a"})
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
