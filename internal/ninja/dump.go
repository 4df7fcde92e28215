package ninja

import (
	"path/filepath"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/quarry-build/quarry/internal/errors"
	"github.com/quarry-build/quarry/internal/graph"
	"github.com/quarry-build/quarry/util"
)

// dumpEnvs writes the diagnostic environment dump next to the manifest: one block per product carrying the narrowed
// environment it was produced in.
func (em *Emitter) dumpEnvs(products []*graph.Product) error {
	file := hclwrite.NewEmptyFile()
	body := file.Body()

	for i, product := range products {
		if i > 0 {
			body.AppendNewline()
		}

		block := body.AppendNewBlock("product", []string{product.Target.String(), product.Primary()})
		blockBody := block.Body()

		blockBody.SetAttributeValue("fingerprint", cty.StringVal(product.Env.Fingerprint()))

		envBody := blockBody.AppendNewBlock("env", nil).Body()

		for _, key := range product.Env.Keys() {
			value, err := product.Env.Lookup(key)
			if err != nil {
				return err
			}

			ctyValue, err := goValueToCty(value)
			if err != nil {
				return err
			}

			envBody.SetAttributeValue(key, ctyValue)
		}
	}

	dumpPath := filepath.Join(em.project.GenDir, em.opts.ManifestName+".env.hcl")

	if err := util.WriteFile(dumpPath, file.Bytes()); err != nil {
		return err
	}

	em.logger.Infof("Wrote environment dump %s", dumpPath)

	return nil
}

func goValueToCty(value any) (cty.Value, error) {
	switch v := value.(type) {
	case string:
		return cty.StringVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case []string:
		if len(v) == 0 {
			return cty.ListValEmpty(cty.String), nil
		}

		elements := make([]cty.Value, 0, len(v))
		for _, element := range v {
			elements = append(elements, cty.StringVal(element))
		}

		return cty.ListVal(elements), nil
	default:
		return cty.NilVal, errors.Errorf("cannot render value of type %T", value)
	}
}
