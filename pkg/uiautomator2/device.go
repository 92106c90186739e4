package uiautomator2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Source returns the window hierarchy XML of the current screen.
func (c *Client) Source(ctx context.Context) (string, error) {
	data, err := c.request(ctx, http.MethodGet, c.sessionPath("/source"), nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse source response: %w", err)
	}
	return resp.Value, nil
}

// GetDeviceInfo returns model and display information.
func (c *Client) GetDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	data, err := c.request(ctx, http.MethodGet, c.sessionPath("/appium/device/info"), nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Value DeviceInfo `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse device info: %w", err)
	}
	return &resp.Value, nil
}

// GetWindowSize returns the current window size in pixels.
func (c *Client) GetWindowSize(ctx context.Context) (WindowSize, error) {
	data, err := c.request(ctx, http.MethodGet, c.sessionPath("/window/current/size"), nil)
	if err != nil {
		return WindowSize{}, err
	}

	var resp struct {
		Value WindowSize `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return WindowSize{}, fmt.Errorf("parse window size: %w", err)
	}
	return resp.Value, nil
}

// GetOrientation returns PORTRAIT or LANDSCAPE.
func (c *Client) GetOrientation(ctx context.Context) (string, error) {
	data, err := c.request(ctx, http.MethodGet, c.sessionPath("/orientation"), nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("parse orientation: %w", err)
	}
	return resp.Value, nil
}
