package search

import (
	"time"

	"github.com/mrlokans/apollo-indexer/internal/entities"
)

// Cluster health statuses.
const (
	StatusGreen  = "green"
	StatusYellow = "yellow"
	StatusRed    = "red"
)

// Health is the subset of the cluster health reply the loader reports.
type Health struct {
	ClusterName string        `json:"cluster_name"`
	Status      string        `json:"status"`
	Took        time.Duration `json:"-"`
}

// IndexSpec is the body of an index-create request.
type IndexSpec struct {
	Settings IndexSettings `json:"settings"`
	Mappings IndexMappings `json:"mappings"`
}

type IndexSettings struct {
	NumberOfShards   int    `json:"number_of_shards"`
	NumberOfReplicas int    `json:"number_of_replicas"`
	RefreshInterval  string `json:"refresh_interval"`
}

type IndexMappings struct {
	Dynamic    string                  `json:"dynamic"`
	Properties map[string]FieldMapping `json:"properties"`
}

type FieldMapping struct {
	Type string `json:"type"`
}

// DefaultIndexSpec returns the settings used for a collection's index.
// Mappings are dynamic; biblios pin usage_count to an integer.
func DefaultIndexSpec(name string) IndexSpec {
	spec := IndexSpec{
		Settings: IndexSettings{
			NumberOfShards:   1,
			NumberOfReplicas: 1,
			RefreshInterval:  "1s",
		},
		Mappings: IndexMappings{
			Dynamic:    "true",
			Properties: map[string]FieldMapping{},
		},
	}
	if name == entities.CollectionBiblios {
		spec.Mappings.Properties["usage_count"] = FieldMapping{Type: "integer"}
	}
	return spec
}

type bulkResponse struct {
	Errors bool                           `json:"errors"`
	Items  []map[string]bulkResponseItem `json:"items"`
}

type bulkResponseItem struct {
	Status int `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

func (r bulkResponse) result() BulkResult {
	var out BulkResult
	for _, item := range r.Items {
		for _, op := range item {
			if op.Error == nil && op.Status < 300 {
				out.Indexed++
				continue
			}
			out.Failed++
			if out.FirstError == "" && op.Error != nil {
				out.FirstError = op.Error.Type + ": " + op.Error.Reason
			}
		}
	}
	return out
}
