package mc4r

import (
	"fmt"
	"strings"

	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"github.com/synaptica-ai/erker2phenopackets/pkg/parsing"
)

// BuildMetaData assembles the batch metadata block. created is the batch date
// as YYYY-MM-DD.
func BuildMetaData(consts *config.Constants, created string) (*models.MetaData, error) {
	if strings.TrimSpace(created) == "" {
		return nil, fmt.Errorf("metadata: creation date is required")
	}
	ts, err := parsing.DateString(created, "")
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	r := consts.Resources
	n := len(r.NamespacePrefixes)
	if len(r.FormalNames) != n || len(r.URLs) != n || len(r.Versions) != n || len(r.IRIPrefixes) != n {
		return nil, LengthMismatchError{
			What:    "resource names, namespace prefixes, urls, versions and iri prefixes",
			Lengths: []int{len(r.FormalNames), n, len(r.URLs), len(r.Versions), len(r.IRIPrefixes)},
		}
	}
	resources := make([]models.Resource, n)
	for i := range resources {
		prefix := strings.TrimSpace(r.NamespacePrefixes[i])
		resources[i] = models.Resource{
			ID:              prefix,
			Name:            strings.TrimSpace(r.FormalNames[i]),
			NamespacePrefix: prefix,
			URL:             strings.TrimSpace(r.URLs[i]),
			Version:         strings.TrimSpace(r.Versions[i]),
			IRIPrefix:       strings.TrimSpace(r.IRIPrefixes[i]),
		}
	}

	return &models.MetaData{
		Created:                  ts,
		CreatedBy:                consts.Mapping.CreatorTag,
		Resources:                resources,
		PhenopacketSchemaVersion: consts.Mapping.PhenopacketSchemaVersion,
	}, nil
}
