package config

import (
	"github.com/mitchellh/mapstructure"
	"github.com/zclconf/go-cty/cty"

	"github.com/quarry-build/quarry/internal/errors"
)

// CtyToGoValue converts an evaluated description value into the plain Go form the environment layer works with:
// strings, bools, int64, []any, and map[string]any.
func CtyToGoValue(val cty.Value) (any, error) {
	if val == cty.NilVal || val.IsNull() {
		return nil, nil
	}

	if !val.IsKnown() {
		return nil, errors.Errorf("value is not known at load time")
	}

	ty := val.Type()

	switch {
	case ty == cty.String:
		return val.AsString(), nil

	case ty == cty.Bool:
		return val.True(), nil

	case ty == cty.Number:
		num := val.AsBigFloat()

		n, accuracy := num.Int64()
		if !num.IsInt() || accuracy != 0 {
			return nil, errors.Errorf("number %s is not an integer", num.String())
		}

		return n, nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := []any{}

		for iter := val.ElementIterator(); iter.Next(); {
			_, element := iter.Element()

			converted, err := CtyToGoValue(element)
			if err != nil {
				return nil, err
			}

			out = append(out, converted)
		}

		return out, nil

	case ty.IsObjectType() || ty.IsMapType():
		return CtyToGoMap(val)

	default:
		return nil, errors.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

// CtyToGoMap converts an evaluated object or map value into a map[string]any.
func CtyToGoMap(val cty.Value) (map[string]any, error) {
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, errors.Errorf("expected an object, got %s", ty.FriendlyName())
	}

	out := map[string]any{}

	for iter := val.ElementIterator(); iter.Next(); {
		key, element := iter.Element()

		converted, err := CtyToGoValue(element)
		if err != nil {
			return nil, err
		}

		out[key.AsString()] = converted
	}

	return out, nil
}

// DecodeOptions decodes a plain option map into the given plugin options struct, erroring on options the struct does
// not declare.
func DecodeOptions(input map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return errors.New(err)
	}

	if err := decoder.Decode(input); err != nil {
		return errors.New(err)
	}

	return nil
}
