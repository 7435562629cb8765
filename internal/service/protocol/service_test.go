package protocol

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nibsworks/tms-scheduler/internal/model"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
	"github.com/nibsworks/tms-scheduler/pkg/logger"
)

type fakeRepo struct {
	byID map[uuid.UUID]*model.Protocol
	gets int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: make(map[uuid.UUID]*model.Protocol)}
}

func (f *fakeRepo) Create(_ context.Context, protocol *model.Protocol) error {
	protocol.ID = uuid.New()
	f.byID[protocol.ID] = protocol
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id uuid.UUID) (*model.Protocol, error) {
	f.gets++
	protocol, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NotFound("protocol", nil)
	}
	return protocol, nil
}

func (f *fakeRepo) List(_ context.Context) ([]*model.Protocol, error) {
	return nil, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

func newService(repo *fakeRepo) *Service {
	return NewService(repo, logger.NewLogger(nil))
}

func TestResolveDuration(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	protocol, err := svc.CreateProtocol(context.Background(), &model.CreateProtocolRequest{
		ProtocolName:    "iTBS",
		SessionDuration: 35,
	})
	require.NoError(t, err)

	assert.Equal(t, 35, svc.ResolveDuration(context.Background(), protocol.ID))
}

func TestResolveDurationFallsBackForUnknownProtocol(t *testing.T) {
	svc := newService(newFakeRepo())

	assert.Equal(t, FallbackDuration, svc.ResolveDuration(context.Background(), uuid.New()))
}

func TestResolveDurationFallsBackForZeroDuration(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	protocol, err := svc.CreateProtocol(context.Background(), &model.CreateProtocolRequest{
		ProtocolName: "legacy",
	})
	require.NoError(t, err)

	assert.Equal(t, FallbackDuration, svc.ResolveDuration(context.Background(), protocol.ID))
}

func TestGetProtocolCaches(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)

	protocol, err := svc.CreateProtocol(context.Background(), &model.CreateProtocolRequest{
		ProtocolName:    "10Hz",
		SessionDuration: 20,
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.GetProtocol(context.Background(), protocol.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, repo.gets)
}
