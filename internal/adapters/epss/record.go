package epss

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/lcalzada-xor/netrisk/internal/core/domain"
)

// flexFloat decodes a JSON number that some feeds encode as a quoted
// string (the public scoring API does exactly that). Unparseable values
// decode to zero rather than failing the whole document.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

// rawRecord is the per-item wire shape shared by the cache file and the
// remote endpoint.
type rawRecord struct {
	CVE        string    `json:"cve"`
	EPSS       flexFloat `json:"epss"`
	Percentile flexFloat `json:"percentile"`
}

// document tolerates both a bare array and an object wrapping the array
// under a "data" key.
type document struct {
	Data []rawRecord `json:"data"`
}

func decodeRecords(data []byte) ([]rawRecord, error) {
	var list []rawRecord
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Data, nil
}

// toDomain converts raw records into a CVE-keyed map, normalizing the
// percentile onto the 0-100 scale exactly once at this boundary.
func toDomain(records []rawRecord) map[string]domain.EPSSRecord {
	out := make(map[string]domain.EPSSRecord, len(records))
	for _, r := range records {
		if r.CVE == "" {
			continue
		}
		out[r.CVE] = domain.EPSSRecord{
			CVE:        r.CVE,
			Score:      float64(r.EPSS),
			Percentile: domain.NormalizePercentile(float64(r.Percentile)),
		}
	}
	return out
}
