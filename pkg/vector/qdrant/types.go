package qdrant

import (
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// matchKeyword builds a Filter condition matching field == value exactly,
// the realization of spec.md §4.3.3's mandatory user_id filter.
func matchKeyword(field, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   field,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
			},
		},
	}
}

// payloadToStruct converts a generic payload map into Qdrant's
// map[string]*qdrant.Value wire representation.
func payloadToStruct(payload map[string]any) map[string]*qdrant.Value {
	out := make(map[string]*qdrant.Value, len(payload))
	for k, v := range payload {
		out[k] = toValue(v)
	}
	return out
}

func toValue(v any) *qdrant.Value {
	switch val := v.(type) {
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}
	case float32:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: float64(val)}}
	case float64:
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}
	case time.Time:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val.UTC().Format(time.RFC3339Nano)}}
	default:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: ""}}
	}
}

// structToPayload converts Qdrant's wire payload map back into a generic
// map[string]any, keeping timestamps as RFC3339 strings (callers that need a
// time.Time parse it back explicitly).
func structToPayload(payload map[string]*qdrant.Value) map[string]any {
	if len(payload) == 0 {
		return nil
	}

	out := make(map[string]any, len(payload))
	for k, v := range payload {
		switch kind := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = kind.StringValue
		case *qdrant.Value_BoolValue:
			out[k] = kind.BoolValue
		case *qdrant.Value_IntegerValue:
			out[k] = kind.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = kind.DoubleValue
		}
	}
	return out
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	switch opt := id.GetPointIdOptions().(type) {
	case *qdrant.PointId_Uuid:
		return opt.Uuid
	case *qdrant.PointId_Num:
		return ""
	}
	return ""
}

func extractVector(v *qdrant.VectorsOutput) []float32 {
	if v == nil {
		return nil
	}
	switch opt := v.GetVectorsOptions().(type) {
	case *qdrant.VectorsOutput_Vector:
		return opt.Vector.GetData()
	}
	return nil
}
