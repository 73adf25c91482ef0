package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"onecta_bridge/internal/types"
)

// patchBody is the body of a characteristic PATCH. Path is omitted when the
// characteristic value itself is written.
type patchBody struct {
	Value any    `json:"value"`
	Path  string `json:"path,omitempty"`
}

func managementPointPath(deviceID, embeddedID string) string {
	return fmt.Sprintf("/v1/gateway-devices/%s/management-points/%s",
		url.PathEscape(deviceID), url.PathEscape(embeddedID))
}

// Patch writes value to one path of a characteristic.
func (c *Client) Patch(ctx context.Context, target types.WriteTarget, value any) error {
	path := managementPointPath(target.DeviceID, target.EmbeddedID) +
		"/characteristics/" + url.PathEscape(target.Characteristic)

	c.logger.Info("Writing characteristic",
		"device_id", target.DeviceID,
		"embedded_id", target.EmbeddedID,
		"management_point_type", target.ManagementPointType,
		"characteristic", target.Characteristic,
		"path", target.Path,
		"value", value)

	_, err := c.doRequest(ctx, http.MethodPatch, endpointCharacteristic, path, patchBody{Value: value, Path: target.Path})
	if err != nil {
		return fmt.Errorf("patch %s: %w", target, err)
	}
	return nil
}

// Put replaces a management point sub-resource, e.g. "schedule/heating/current".
func (c *Client) Put(ctx context.Context, deviceID, embeddedID, resource string, body any) error {
	path := managementPointPath(deviceID, embeddedID) + "/" + resource

	c.logger.Info("Writing resource",
		"device_id", deviceID,
		"embedded_id", embeddedID,
		"resource", resource)

	_, err := c.doRequest(ctx, http.MethodPut, endpointResource, path, body)
	if err != nil {
		return fmt.Errorf("put %s/%s/%s: %w", deviceID, embeddedID, resource, err)
	}
	return nil
}
