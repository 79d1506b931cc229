package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/okian/sluice/internal/domain/record"
)

// Default DynamoDB sink configuration constants.
const (
	defaultDynamoKeyField = "id"
)

// DynamoAPI is the subset of the DynamoDB client the sink consumes.
type DynamoAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Compile-time check that the real client satisfies the interface.
var _ DynamoAPI = (*dynamodb.Client)(nil)

// DynamoSink implements Sink over a DynamoDB table.
//
// Number values are written as the N attribute's exact decimal string
// (json.Number text), never through float64, so precision is preserved all
// the way into the store.
type DynamoSink struct {
	client   DynamoAPI
	table    string
	keyField string
}

// DynamoOption applies a configuration option to the DynamoSink.
type DynamoOption func(*DynamoSink)

// WithDynamoKeyField sets the partition key field name.
func WithDynamoKeyField(field string) DynamoOption {
	return func(s *DynamoSink) {
		if field != "" {
			s.keyField = field
		}
	}
}

// NewDynamoSink creates a sink over an injected DynamoDB client.
func NewDynamoSink(client DynamoAPI, table string, opts ...DynamoOption) *DynamoSink {
	s := &DynamoSink{
		client:   client,
		table:    table,
		keyField: defaultDynamoKeyField,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BatchPut writes items via one BatchWriteItem call. Unprocessed items come
// back as throttled so the caller can retry just those keys.
func (s *DynamoSink) BatchPut(ctx context.Context, items []record.Record) (Result, error) {
	res := Result{Failed: map[string]FailReason{}}

	requests := make([]types.WriteRequest, 0, len(items))
	submitted := make([]string, 0, len(items))
	for i, item := range items {
		key, ok := item.Key(s.keyField)
		if !ok {
			// Unkeyed items are unaddressable; report them by position.
			res.Failed[fmt.Sprintf("#%d", i)] = FailMalformed
			continue
		}
		attrs, err := toAttributeMap(item)
		if err != nil {
			res.Failed[key] = FailMalformed
			continue
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: attrs},
		})
		submitted = append(submitted, key)
	}
	if len(requests) == 0 {
		return res, nil
	}

	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{s.table: requests},
	})
	if err != nil {
		return s.mapCallError(res, submitted, err)
	}

	// Anything the store could not absorb is reported back unprocessed;
	// per the service contract that means throttling, not rejection.
	unprocessed := map[string]struct{}{}
	for _, wr := range out.UnprocessedItems[s.table] {
		if wr.PutRequest == nil {
			continue
		}
		if key, ok := attrKey(wr.PutRequest.Item, s.keyField); ok {
			unprocessed[key] = struct{}{}
		}
	}
	for _, key := range submitted {
		if _, throttled := unprocessed[key]; throttled {
			res.Failed[key] = FailThrottled
			continue
		}
		res.Succeeded = append(res.Succeeded, key)
	}
	return res, nil
}

// mapCallError classifies a whole-call failure: throttling and validation
// map onto per-item outcomes, anything else means the sink is unreachable.
func (s *DynamoSink) mapCallError(res Result, submitted []string, err error) (Result, error) {
	var throughput *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughput) {
		for _, key := range submitted {
			res.Failed[key] = FailThrottled
		}
		return res, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException", "ThrottlingException", "RequestLimitExceeded":
			for _, key := range submitted {
				res.Failed[key] = FailThrottled
			}
			return res, nil
		case "ValidationException":
			for _, key := range submitted {
				res.Failed[key] = FailMalformed
			}
			return res, nil
		}
	}
	return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// toAttributeMap converts a record into DynamoDB attribute values.
// The conversion is explicit rather than reflection-based so json.Number
// lands in the N member untouched.
func toAttributeMap(r record.Record) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(r))
	for name, value := range r {
		av, err := toAttribute(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = av
	}
	return out, nil
}

func toAttribute(v any) (types.AttributeValue, error) {
	switch val := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: val}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: val}, nil
	case json.Number:
		return &types.AttributeValueMemberN{Value: val.String()}, nil
	case map[string]any:
		nested, err := toAttributeMap(record.Record(val))
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: nested}, nil
	case []any:
		list := make([]types.AttributeValue, 0, len(val))
		for _, item := range val {
			av, err := toAttribute(item)
			if err != nil {
				return nil, err
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// attrKey extracts the string partition key from an attribute map.
func attrKey(item map[string]types.AttributeValue, field string) (string, bool) {
	av, ok := item[field]
	if !ok {
		return "", false
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok || s.Value == "" {
		return "", false
	}
	return s.Value, true
}
