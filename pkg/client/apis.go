package client

import (
	"encoding/json"
	"strconv"

	pkgerrors "github.com/pkg/errors"

	"github.com/paperwx/paperwx/pkg/config"
	"github.com/paperwx/paperwx/pkg/state"
	"github.com/paperwx/paperwx/pkg/types"
)

func (c *Client) GetStatus() (*types.Status, error) {
	ret, err := c.Get("/status")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get daemon status")
	}

	st := &types.Status{}
	if err := json.Unmarshal([]byte(ret), st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal status")
	}
	return st, nil
}

func (c *Client) GetState() (*state.CycleState, error) {
	ret, err := c.Get("/state")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get cycle state")
	}

	st := &state.CycleState{}
	if err := json.Unmarshal([]byte(ret), st); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal cycle state")
	}
	return st, nil
}

func (c *Client) GetConfig() (*config.RawFileConfig, error) {
	ret, err := c.Get("/config")
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to get config")
	}

	conf := &config.RawFileConfig{}
	if err := json.Unmarshal([]byte(ret), conf); err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to unmarshal config")
	}
	return conf, nil
}

func (c *Client) GetKeepAwake() (bool, error) {
	ret, err := c.Get("/keep-awake")
	if err != nil {
		return false, pkgerrors.Wrapf(err, "failed to get keep-awake state")
	}
	return parseBoolResponse(ret)
}

func (c *Client) SetKeepAwake(enabled bool) (string, error) {
	return c.Put("/keep-awake", strconv.FormatBool(enabled))
}

func (c *Client) SetRefreshMinutes(minutes int) (string, error) {
	return c.Put("/refresh-minutes", strconv.Itoa(minutes))
}

// TriggerRefresh asks the daemon to run a cycle now instead of waiting
// for the next scheduled wake.
func (c *Client) TriggerRefresh() (string, error) {
	return c.Post("/refresh", "")
}

func (c *Client) GetVersion() (string, error) {
	ret, err := c.Get("/version")
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to get daemon version")
	}

	var version string
	if err := json.Unmarshal([]byte(ret), &version); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to unmarshal version")
	}
	return version, nil
}

func parseBoolResponse(ret string) (bool, error) {
	var b bool
	if err := json.Unmarshal([]byte(ret), &b); err != nil {
		return false, pkgerrors.Wrapf(err, "failed to unmarshal bool response")
	}
	return b, nil
}
