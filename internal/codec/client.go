package codec

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region client-struct
// ModelClient calls a remote Advisor service. It satisfies advisor.Model.
type ModelClient struct {
	conn   *grpc.ClientConn
	client AdvisorServiceClient
}

// #endregion client-struct

// #region constructor
// NewModelClient connects to the Advisor service at addr.
func NewModelClient(addr string, opts ...grpc.DialOption) (*ModelClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &ModelClient{
		conn:   conn,
		client: NewAdvisorServiceClient(conn),
	}, nil
}

// NewModelClientWithService creates a ModelClient with an injected service implementation.
// Used for testing without a real gRPC connection.
func NewModelClientWithService(svc AdvisorServiceClient) *ModelClient {
	return &ModelClient{client: svc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection.
func (c *ModelClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region generate
// Generate sends prompt to the Advisor service and returns the raw answer.
func (c *ModelClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Generate(ctx, wrapperspb.String(prompt))
	if err != nil {
		return "", fmt.Errorf("generate rpc: %w", err)
	}
	return resp.GetValue(), nil
}

// #endregion generate
