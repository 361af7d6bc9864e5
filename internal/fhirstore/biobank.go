package fhirstore

import (
	"github.com/samply/directory-sync-service-sub000/internal/directory"
	"github.com/samply/directory-sync-service-sub000/internal/update"
)

// BiobankUpdater applies registry biobank attributes to a store organization.
type BiobankUpdater = update.Updater[Organization, directory.Biobank]

// NewBiobankUpdater builds the updater that copies registry-owned biobank
// metadata into the local organization resource. Every field updater is a
// no-op when the registry value is empty.
func NewBiobankUpdater() *BiobankUpdater {
	return update.New(
		updateName,
		updateAcronym,
		updateDescription,
		updateContactEmail,
		updateURL,
	)
}

func updateName(org *Organization, biobank directory.Biobank) {
	if biobank.Name != "" {
		org.Name = biobank.Name
	}
}

func updateAcronym(org *Organization, biobank directory.Biobank) {
	if biobank.Acronym == "" {
		return
	}
	for _, alias := range org.Alias {
		if alias == biobank.Acronym {
			return
		}
	}
	org.Alias = append(org.Alias, biobank.Acronym)
}

func updateDescription(org *Organization, biobank directory.Biobank) {
	if biobank.Description == "" {
		return
	}
	for i := range org.Extension {
		if org.Extension[i].URL == extDescription {
			org.Extension[i].ValueString = biobank.Description
			return
		}
	}
	org.Extension = append(org.Extension, Extension{URL: extDescription, ValueString: biobank.Description})
}

func updateContactEmail(org *Organization, biobank directory.Biobank) {
	setTelecom(org, "email", biobank.ContactEmail)
}

func updateURL(org *Organization, biobank directory.Biobank) {
	setTelecom(org, "url", biobank.URL)
}

func setTelecom(org *Organization, system, value string) {
	if value == "" {
		return
	}
	for i := range org.Telecom {
		if org.Telecom[i].System == system {
			org.Telecom[i].Value = value
			return
		}
	}
	org.Telecom = append(org.Telecom, ContactPoint{System: system, Value: value})
}
