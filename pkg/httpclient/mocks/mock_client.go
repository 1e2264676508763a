package mocks

import (
	"context"

	"github.com/samvad-hq/samvad-debts-client/pkg/httpclient"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Do(ctx context.Context, req httpclient.Request) (httpclient.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(httpclient.Response), args.Error(1)
}

// Response is a canned httpclient.Response.
type Response struct {
	Status  int
	Payload []byte
}

func (r Response) Body() []byte    { return r.Payload }
func (r Response) StatusCode() int { return r.Status }
