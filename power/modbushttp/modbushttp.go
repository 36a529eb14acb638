// Package modbushttp tunnels raw Modbus ADUs over HTTP so one serial
// adapter can serve clients on other hosts.
package modbushttp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/goburrow/modbus"
)

// SendResponse is the JSON body returned by a bridge for one ADU.
type SendResponse struct {
	ADUResponse []byte
	Error       string
}

// Client is a modbus.ClientHandler that POSTs each ADU to a bridge. It
// reuses the RTU handler's encoder and replaces its transport.
type Client struct {
	*modbus.RTUClientHandler

	baseURL  string
	password string
}

func NewClient(baseURL string) *Client {
	handler := modbus.NewRTUClientHandler("/dev/null")
	handler.SlaveId = 1
	return &Client{
		RTUClientHandler: handler,
		baseURL:          baseURL,
	}
}

// SetPassword attaches a password sent as HTTP basic auth.
func (c *Client) SetPassword(password string) {
	c.password = password
}

func (c *Client) Send(aduRequest []byte) ([]byte, error) {
	req, err := http.NewRequest("POST", c.baseURL, bytes.NewReader(aduRequest))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.password != "" {
		req.SetBasicAuth("", c.password)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("bad status code: %s\n%s", resp.Status, string(body))
	}
	var sendResponse SendResponse
	if err := json.Unmarshal(body, &sendResponse); err != nil {
		return nil, err
	}
	if sendResponse.Error != "" {
		err = errors.New(sendResponse.Error)
	}
	return sendResponse.ADUResponse, err
}

func (c *Client) Connect() error {
	return nil
}

func (c *Client) Close() error {
	return nil
}
