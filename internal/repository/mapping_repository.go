package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"leadbot/internal/entities"
)

type mappingFile struct {
	Mappings []mappingEntry `json:"mappings" yaml:"mappings"`
}

type mappingEntry struct {
	TenantID   string                    `json:"tenant_id" yaml:"tenant_id"`
	CustomerID string                    `json:"customer_id" yaml:"customer_id"`
	Channels   []entities.ChannelBinding `json:"channels" yaml:"channels"`
	Keywords   []string                  `json:"keywords" yaml:"keywords"`
}

// LoadMappingTable reads the tenant routing table from a JSON or YAML file.
// Entries without a tenant id are skipped. On any error the returned table
// is empty, so resolution falls through to the default tenant.
func LoadMappingTable(path string) (entities.MappingTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entities.MappingTable{}, eris.Wrapf(err, "read mappings %s", path)
	}

	var doc mappingFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return entities.MappingTable{}, eris.Wrapf(err, "decode mappings %s", path)
	}

	table := make(entities.MappingTable, 0, len(doc.Mappings))
	for _, m := range doc.Mappings {
		id := m.TenantID
		if id == "" {
			id = m.CustomerID
		}
		if id == "" {
			continue
		}
		table = append(table, entities.TenantMapping{
			TenantID: id,
			Channels: m.Channels,
			Keywords: m.Keywords,
		})
	}
	return table, nil
}
