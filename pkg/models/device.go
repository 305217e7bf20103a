/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package models pkg/models/device.go
package models

import (
	"fmt"
	"time"
)

const legacyPrefix = "legacy:"

// DeviceType identifies a device archetype and the dataset it replays.
type DeviceType string

const (
	DeviceFish  DeviceType = "fish"
	DevicePlant DeviceType = "plant"
)

// DeviceTypes lists archetypes in processing order.
var DeviceTypes = []DeviceType{DeviceFish, DevicePlant}

// ParseDeviceType validates a device type string.
func ParseDeviceType(s string) (DeviceType, error) {
	switch DeviceType(s) {
	case DeviceFish, DevicePlant:
		return DeviceType(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDeviceType, s)
	}
}

// Device is a virtual device record owned by a user. Telemetry is submitted
// with the device's own credentials.
type Device struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	DeviceType DeviceType `json:"device_type"`
	MacAddress string     `json:"mac_address"`
	APIKey     string     `json:"-"`
}

// Environment groups up to one fish and one plant device sharing a playback speed.
type Environment struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	FishDeviceID    string    `json:"fish_device_id,omitempty"`
	PlantDeviceID   string    `json:"plant_device_id,omitempty"`
	SpeedMultiplier int       `json:"speed_multiplier"`
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DeviceID returns the configured device for the archetype, or "".
func (e *Environment) DeviceID(t DeviceType) string {
	switch t {
	case DeviceFish:
		return e.FishDeviceID
	case DevicePlant:
		return e.PlantDeviceID
	default:
		return ""
	}
}

// LegacyConfig is the single global replay setup that predates environments.
// FishRow and PlantRow hold the next row each legacy stream would have sent.
type LegacyConfig struct {
	UserID                string    `json:"user_id"`
	FishDeviceID          string    `json:"fish_device_id,omitempty"`
	PlantDeviceID         string    `json:"plant_device_id,omitempty"`
	FishRow               int       `json:"fish_row"`
	PlantRow              int       `json:"plant_row"`
	Enabled               bool      `json:"enabled"`
	MigratedEnvironmentID string    `json:"migrated_environment_id,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// DeviceID returns the configured legacy device for the archetype, or "".
func (c *LegacyConfig) DeviceID(t DeviceType) string {
	if t == DeviceFish {
		return c.FishDeviceID
	}

	if t == DevicePlant {
		return c.PlantDeviceID
	}

	return ""
}

// Row returns the legacy playback position for the archetype.
func (c *LegacyConfig) Row(t DeviceType) int {
	if t == DeviceFish {
		return c.FishRow
	}

	return c.PlantRow
}

// LegacyEnvironmentID is the pseudo-environment id under which a user's
// legacy streams keep their sessions.
func LegacyEnvironmentID(userID string) string {
	return legacyPrefix + userID
}

// TargetDevice is one device stream the orchestrator should advance.
type TargetDevice struct {
	Type        DeviceType
	DeviceID    string
	StartCursor int
}

// Target is a unit of orchestrator work produced by a streaming backend.
type Target struct {
	EnvironmentID string
	UserID        string
	Speed         int
	Devices       []TargetDevice
}
