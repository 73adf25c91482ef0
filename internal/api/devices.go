package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"onecta_bridge/internal/types"
)

// Endpoint labels used for telemetry.
const (
	endpointDevices        = "gateway-devices"
	endpointCharacteristic = "characteristic"
	endpointResource       = "resource"
)

// FetchAllDevices retrieves the full document of every gateway device on the account.
func (c *Client) FetchAllDevices(ctx context.Context) ([]types.Snapshot, error) {
	data, err := c.doRequest(ctx, http.MethodGet, endpointDevices, "/v1/gateway-devices", nil)
	if err != nil {
		return nil, err
	}

	var snaps []types.Snapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("%w: unmarshal gateway devices: %w", ErrTransport, err)
	}

	return snaps, nil
}
