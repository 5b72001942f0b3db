package search

import (
	"fmt"
	"strings"

	"github.com/kantai/blockstack-search-indexer/internal/model"
)

// Service tags recognized while scanning profile.account entries.
const (
	serviceOpenBazaar = "openbazaar"
	serviceTwitter    = "twitter"
)

// deriveSearchProfile derives the denormalized search record from one
// namespace record. Missing fields stay nil; fields with shapes the scanner
// does not understand are record-level errors for the caller to collect.
func deriveSearchProfile(record model.NamespaceRecord) (model.SearchProfileRecord, error) {
	search := model.SearchProfileRecord{
		Profile:            record.Profile,
		Username:           record.Username,
		FullyQualifiedName: record.FullyQualifiedName,
	}

	name, err := displayName(record.Profile)
	if err != nil {
		return model.SearchProfileRecord{}, err
	}
	if name != "" {
		lowered := strings.ToLower(name)
		search.Name = &lowered
	}

	accounts, err := accountEntries(record.Profile)
	if err != nil {
		return model.SearchProfileRecord{}, err
	}
	for _, account := range accounts {
		service, _ := account["service"].(string)
		identifier, _ := account["identifier"].(string)
		if identifier == "" {
			continue
		}
		switch {
		case strings.EqualFold(service, serviceOpenBazaar):
			if search.OpenBazaarHandle == nil {
				handle := identifier
				search.OpenBazaarHandle = &handle
			}
		case strings.EqualFold(service, serviceTwitter):
			if search.TwitterHandle == nil {
				handle := identifier
				search.TwitterHandle = &handle
			}
		}
	}
	return search, nil
}

// displayName pulls profile.name, which is either a plain string or a
// legacy object carrying a "formatted" field.
func displayName(profile model.Profile) (string, error) {
	if profile == nil {
		return "", nil
	}
	raw, ok := profile["name"]
	if !ok || raw == nil {
		return "", nil
	}
	switch name := raw.(type) {
	case string:
		return name, nil
	case map[string]any:
		if formatted, ok := name["formatted"].(string); ok {
			return formatted, nil
		}
		return "", nil
	default:
		return "", fmt.Errorf("profile name has unexpected type %T", raw)
	}
}

// accountEntries pulls profile.account as a list of entry maps. Entries of
// other shapes are dropped; an account field that is not a list at all is a
// record-level error.
func accountEntries(profile model.Profile) ([]map[string]any, error) {
	if profile == nil {
		return nil, nil
	}
	raw, ok := profile["account"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("profile account has unexpected type %T", raw)
	}
	entries := make([]map[string]any, 0, len(list))
	for _, elem := range list {
		if entry, ok := elem.(map[string]any); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
