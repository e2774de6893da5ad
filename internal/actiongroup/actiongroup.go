// Package actiongroup implements the Bedrock agent action-group backend for
// account status lookups. The agent calls the getAccountStatus action with
// an account id; the handler fetches the row from DynamoDB and returns it in
// the action-group response envelope, in DynamoDB wire form.
package actiongroup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// DefaultTableName is the account status table.
	DefaultTableName = "CustomerAccountStatus"
	// TableEnvVar overrides DefaultTableName in the Lambda environment.
	TableEnvVar = "ACCOUNT_STATUS_TABLE"

	defaultActionGroup = "CustomerAccountStatus"
	defaultAPIPath     = "/getAccountStatus"
	defaultHTTPMethod  = "POST"
)

// DynamoAPI is the slice of the DynamoDB client the handler uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

var _ DynamoAPI = (*dynamodb.Client)(nil)

// Response is the action-group response envelope the agent expects.
type Response struct {
	MessageVersion          string          `json:"messageVersion"`
	Response                ActionResponse  `json:"response"`
	SessionAttributes       json.RawMessage `json:"sessionAttributes"`
	PromptSessionAttributes json.RawMessage `json:"promptSessionAttributes"`
}

// ActionResponse identifies the action invocation being answered.
type ActionResponse struct {
	ActionGroup    string       `json:"actionGroup"`
	APIPath        string       `json:"apiPath"`
	HTTPMethod     string       `json:"httpMethod"`
	HTTPStatusCode int          `json:"httpStatusCode"`
	ResponseBody   ResponseBody `json:"responseBody"`
}

// ResponseBody wraps the payload under its content type.
type ResponseBody struct {
	JSON BodyContent `json:"application/json"`
}

// BodyContent carries the payload as a JSON-encoded string, per the agent
// contract.
type BodyContent struct {
	Body string `json:"body"`
}

// ExtractAccountID pulls the account id out of an invocation event. Direct
// invocations carry it as a top-level "account_id" or "AccountID" field;
// agent invocations carry it in "parameters", either as a name/value list or
// as a map. A present top-level field wins even when its value turns out to
// be empty, and in the list form the first matching parameter wins even when
// its value is null.
func ExtractAccountID(event map[string]json.RawMessage) (string, error) {
	for _, key := range []string{"account_id", "AccountID"} {
		if raw, ok := event[key]; ok && !isJSONNull(raw) {
			return validateID(scalarString(raw), event)
		}
	}

	if raw, ok := event["parameters"]; ok && !isJSONNull(raw) {
		var list []struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(raw, &list); err == nil {
			for _, p := range list {
				if p.Name != "account_id" && p.Name != "AccountID" {
					continue
				}
				if isJSONNull(p.Value) {
					return "", missingErr(event)
				}
				return validateID(scalarString(p.Value), event)
			}
			return "", missingErr(event)
		}

		var dict map[string]json.RawMessage
		if err := json.Unmarshal(raw, &dict); err == nil {
			v := dict["account_id"]
			if jsonFalsy(v) {
				v = dict["AccountID"]
			}
			if isJSONNull(v) {
				return "", missingErr(event)
			}
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(v, &obj); err == nil {
				inner, ok := obj["value"]
				if !ok || isJSONNull(inner) {
					return "", missingErr(event)
				}
				return validateID(scalarString(inner), event)
			}
			return validateID(scalarString(v), event)
		}
	}

	return "", missingErr(event)
}

func validateID(id string, event map[string]json.RawMessage) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", missingErr(event)
	}
	return id, nil
}

func missingErr(event map[string]json.RawMessage) error {
	keys := make([]string, 0, len(event))
	for k := range event {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Errorf("AccountID is missing. Event keys: %v", keys)
}

// scalarString renders a JSON scalar the way the item key expects: strings
// unquoted, numbers and anything else as their literal text.
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

func isJSONNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// jsonFalsy reports whether the value is empty in the loose sense used for
// the map-form fallback: null, "", 0, false, {}, and [] all count.
func jsonFalsy(raw json.RawMessage) bool {
	if isJSONNull(raw) {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case float64:
		return t == 0
	case bool:
		return !t
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// Lookup fetches the account row. The table's partition key is the numeric
// AccountID, which DynamoDB takes as a string-encoded number.
func Lookup(ctx context.Context, client DynamoAPI, table, accountID string) (*dynamodb.GetItemOutput, error) {
	return client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			"AccountID": &types.AttributeValueMemberN{Value: accountID},
		},
	})
}

// EncodeItemJSON renders the lookup result in DynamoDB wire form, the shape
// the agent's OpenAPI schema documents: {"Item": {"Status": {"S": "active"}}}
// when the account exists, {} when it does not.
func EncodeItemJSON(out *dynamodb.GetItemOutput) (string, error) {
	body := map[string]any{}
	if out != nil && out.Item != nil {
		item := make(map[string]any, len(out.Item))
		for name, av := range out.Item {
			encoded, err := encodeAttribute(av)
			if err != nil {
				return "", err
			}
			item[name] = encoded
		}
		body["Item"] = item
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func encodeAttribute(av types.AttributeValue) (map[string]any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]any{"S": v.Value}, nil
	case *types.AttributeValueMemberN:
		return map[string]any{"N": v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]any{"BOOL": v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return map[string]any{"NULL": v.Value}, nil
	case *types.AttributeValueMemberB:
		return map[string]any{"B": v.Value}, nil
	case *types.AttributeValueMemberSS:
		return map[string]any{"SS": v.Value}, nil
	case *types.AttributeValueMemberNS:
		return map[string]any{"NS": v.Value}, nil
	case *types.AttributeValueMemberBS:
		return map[string]any{"BS": v.Value}, nil
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(v.Value))
		for _, elem := range v.Value {
			encoded, err := encodeAttribute(elem)
			if err != nil {
				return nil, err
			}
			list = append(list, encoded)
		}
		return map[string]any{"L": list}, nil
	case *types.AttributeValueMemberM:
		m := make(map[string]any, len(v.Value))
		for name, elem := range v.Value {
			encoded, err := encodeAttribute(elem)
			if err != nil {
				return nil, err
			}
			m[name] = encoded
		}
		return map[string]any{"M": m}, nil
	}
	return nil, fmt.Errorf("unsupported attribute type %T", av)
}

// NewResponse builds the envelope, echoing the action identifiers and
// session state from the incoming event and defaulting any the event omits.
func NewResponse(event map[string]json.RawMessage, body string) *Response {
	return &Response{
		MessageVersion: "1.0",
		Response: ActionResponse{
			ActionGroup:    stringField(event, "actionGroup", defaultActionGroup),
			APIPath:        stringField(event, "apiPath", defaultAPIPath),
			HTTPMethod:     stringField(event, "httpMethod", defaultHTTPMethod),
			HTTPStatusCode: 200,
			ResponseBody:   ResponseBody{JSON: BodyContent{Body: body}},
		},
		SessionAttributes:       objectField(event, "sessionAttributes"),
		PromptSessionAttributes: objectField(event, "promptSessionAttributes"),
	}
}

func stringField(event map[string]json.RawMessage, key, fallback string) string {
	raw, ok := event[key]
	if !ok {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return fallback
	}
	return s
}

func objectField(event map[string]json.RawMessage, key string) json.RawMessage {
	raw, ok := event[key]
	if !ok || isJSONNull(raw) {
		return json.RawMessage("{}")
	}
	return raw
}

// Handler answers getAccountStatus invocations.
type Handler struct {
	Client DynamoAPI
	Table  string
	Logger *slog.Logger
}

// Handle extracts the account id from the event, looks the account up, and
// wraps the row in the response envelope.
func (h *Handler) Handle(ctx context.Context, event map[string]json.RawMessage) (*Response, error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if data, err := json.Marshal(event); err == nil {
		logger.Info("agent invocation", "event", string(data))
	}

	accountID, err := ExtractAccountID(event)
	if err != nil {
		logger.Error("account id extraction failed", "error", err)
		return nil, err
	}

	out, err := Lookup(ctx, h.Client, h.Table, accountID)
	if err != nil {
		logger.Error("dynamodb lookup failed", "account_id", accountID, "error", err)
		return nil, err
	}

	body, err := EncodeItemJSON(out)
	if err != nil {
		return nil, err
	}
	logger.Info("account status fetched", "account_id", accountID, "found", out.Item != nil)

	return NewResponse(event, body), nil
}
