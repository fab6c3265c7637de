package service

import (
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/migration"
	"github.com/gogotex/gogotex/backend/go-realtime/internal/realtime/objpath"
)

const (
	SFProjectsCollection = "sf_projects"
	// SFProjectAdminRole is the Paratext administrator role of a project.
	SFProjectAdminRole = "pt_administrator"
)

// SFProjectMigrations is the schema history of sf_projects documents.
func SFProjectMigrations() *migration.Registry {
	return migration.MustRegistry(SFProjectsCollection,
		migration.Migration{Version: 1, Name: "chapters isValid", Transform: markChaptersValid},
		migration.Migration{Version: 2, Name: "checking config defaults", Transform: checkingConfigDefaults},
	)
}

// markChaptersValid sets isValid on every chapter that lacks it.
func markChaptersValid(data map[string]any) (map[string]any, error) {
	texts, _ := data["texts"].([]any)
	for _, t := range texts {
		text, ok := t.(map[string]any)
		if !ok {
			continue
		}
		chapters, _ := text["chapters"].([]any)
		for _, c := range chapters {
			if chapter, ok := c.(map[string]any); ok {
				if _, set := chapter["isValid"]; !set {
					chapter["isValid"] = true
				}
			}
		}
	}
	return data, nil
}

// checkingConfigDefaults fills in checking settings added after projects were first stored.
func checkingConfigDefaults(data map[string]any) (map[string]any, error) {
	cfg, ok := data["checkingConfig"].(map[string]any)
	if !ok {
		cfg = map[string]any{}
		data["checkingConfig"] = cfg
	}
	defaults := map[string]any{
		"checkingEnabled":             false,
		"usersSeeEachOthersResponses": true,
		"shareEnabled":                false,
		"answerExportMethod":          "all",
	}
	for k, v := range defaults {
		if _, set := cfg[k]; !set {
			cfg[k] = v
		}
	}
	return data, nil
}

// NewSFProjectService governs Scripture Forge project documents. Sync state,
// Paratext identity, text structure and translation settings are maintained by
// the sync process only; checking settings and user roles are administrator
// sections.
func NewSFProjectService() *ProjectService {
	return NewProjectService(ProjectConfig{
		Collection: SFProjectsCollection,
		AdminRole:  SFProjectAdminRole,
		Migrations: SFProjectMigrations(),
		Immutable: []objpath.Template{
			objpath.MustParse("sync", true),
			objpath.MustParse("paratextId", true),
			objpath.MustParse("texts", false),
			objpath.MustParse("texts.*.bookNum", true),
			objpath.MustParse("texts.*.chapters", false),
			objpath.MustParse("texts.*.chapters.*.isValid", true),
			objpath.MustParse("texts.*.chapters.*.lastVerse", true),
			objpath.MustParse("texts.*.chapters.*.number", true),
			objpath.MustParse("texts.*.chapters.*.permissions", true),
			objpath.MustParse("texts.*.hasSource", true),
			objpath.MustParse("texts.*.permissions", true),
			objpath.MustParse("translateConfig", true),
			objpath.MustParse("writingSystem", true),
		},
		AdminOnly: []objpath.Template{
			objpath.MustParse("checkingConfig", true),
		},
		IndexPaths: []string{"paratextId", "shortName"},
	})
}
