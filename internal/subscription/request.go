/*******************************************************************************
* Copyright (C) 2026 the Eclipse Ibeji Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package subscription

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/xeipuuv/gojsonschema"
)

// TopicAction is the verb of a topic-management request sent to a provider's
// management callback.
type TopicAction string

// Supported actions. INIT and DELETE are reserved by the contract and not
// produced by this service yet.
const (
	ActionPublish     TopicAction = "PUBLISH"
	ActionStopPublish TopicAction = "STOP_PUBLISH"
	ActionInit        TopicAction = "INIT"
	ActionDelete      TopicAction = "DELETE"
)

// TopicManagementRequest instructs a provider to start or stop publishing an
// entity's values on a dynamic topic.
type TopicManagementRequest struct {
	Action  TopicAction     `json:"action"`
	Payload CallbackPayload `json:"payload"`
}

// CallbackPayload carries the subject of a topic-management request.
type CallbackPayload struct {
	EntityID     string            `json:"entityId"`
	Topic        string            `json:"topic"`
	Constraints  []Constraint      `json:"constraints,omitempty"`
	Subscription *SubscriptionInfo `json:"subscriptionInfo,omitempty"`
}

// SubscriptionInfo tells the provider where the provisioned topic lives.
type SubscriptionInfo struct {
	Protocol string `json:"protocol"`
	URI      string `json:"uri"`
}

// topicManagementSchema validates requests on the wire. The payload shape is
// an external contract shared with providers, so structural validation
// happens before any request leaves or enters the process.
const topicManagementSchema = `{
	"type": "object",
	"required": ["action", "payload"],
	"properties": {
		"action": {
			"type": "string",
			"enum": ["PUBLISH", "STOP_PUBLISH", "INIT", "DELETE"]
		},
		"payload": {
			"type": "object",
			"required": ["entityId", "topic"],
			"properties": {
				"entityId": { "type": "string", "minLength": 1 },
				"topic": { "type": "string", "minLength": 1 },
				"constraints": {
					"type": "array",
					"items": {
						"type": "object",
						"required": ["type", "value"],
						"properties": {
							"type": { "type": "string" },
							"value": { "type": "string" }
						}
					}
				},
				"subscriptionInfo": {
					"type": "object",
					"required": ["protocol", "uri"],
					"properties": {
						"protocol": { "type": "string" },
						"uri": { "type": "string" }
					}
				}
			}
		}
	}
}`

var topicManagementLoader = gojsonschema.NewStringLoader(topicManagementSchema)

// EncodeTopicManagementRequest serializes and validates a request.
func EncodeTopicManagementRequest(request TopicManagementRequest) ([]byte, error) {
	var json = jsoniter.ConfigCompatibleWithStandardLibrary
	data, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	if err := validateTopicManagement(data); err != nil {
		return nil, err
	}
	return data, nil
}

// DecodeTopicManagementRequest validates and deserializes a request.
func DecodeTopicManagementRequest(data []byte) (TopicManagementRequest, error) {
	if err := validateTopicManagement(data); err != nil {
		return TopicManagementRequest{}, err
	}
	var request TopicManagementRequest
	var json = jsoniter.ConfigCompatibleWithStandardLibrary
	if err := json.Unmarshal(data, &request); err != nil {
		return TopicManagementRequest{}, err
	}
	return request, nil
}

func validateTopicManagement(data []byte) error {
	result, err := gojsonschema.Validate(topicManagementLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validating topic management request: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid topic management request: %v", result.Errors())
	}
	return nil
}
