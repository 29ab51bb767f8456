package models

import "time"

// ModDescriptor is one declared mod in a modpack manifest. Filename is the
// identity key and is compared case-sensitively.
type ModDescriptor struct {
	Filename     string `json:"filename" validate:"required"`
	URL          string `json:"url,omitempty"`
	Hash         string `json:"hash,omitempty"`
	Size         int64  `json:"size,omitempty"`
	Required     bool   `json:"required"`
	Version      string `json:"version,omitempty"`
	Description  string `json:"description,omitempty"`
	CurseForgeID int64  `json:"curseForgeId,omitempty"`
	FileID       int64  `json:"fileId,omitempty"`
}

type Modloader struct {
	Type    string `json:"type"`
	Version string `json:"version"`
}

type Folders struct {
	Essential []string `json:"essential"`
	Optional  []string `json:"optional"`
}

type Installer struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Hash     string `json:"hash"`
}

// Modpack is the manifest document persisted as modpack.json in a workspace
// and as <id>.json in the modpacks directory.
type Modpack struct {
	ID               string          `json:"id" validate:"required"`
	Name             string          `json:"name"`
	Version          string          `json:"version"`
	MinecraftVersion string          `json:"minecraftVersion"`
	Modloader        Modloader       `json:"modloader"`
	Author           string          `json:"author,omitempty"`
	Description      string          `json:"description,omitempty"`
	RequiredRAM      string          `json:"requiredRam,omitempty"`
	JavaVersion      string          `json:"javaVersion,omitempty"`
	CreatedAt        *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time      `json:"updatedAt,omitempty"`
	ImportedFrom     string          `json:"importedFrom,omitempty"`
	Folders          Folders         `json:"folders"`
	Mods             []ModDescriptor `json:"mods"`
	Installer        *Installer      `json:"installer"`
}

// ModpackSummary is the listing view of an available modpack.
type ModpackSummary struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Version          string `json:"version"`
	Description      string `json:"description,omitempty"`
	MinecraftVersion string `json:"minecraftVersion"`
}

// WorkspaceSummary is the listing view of an authoring workspace.
type WorkspaceSummary struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Version          string `json:"version"`
	MinecraftVersion string `json:"minecraftVersion"`
	ModCount         int    `json:"modCount"`
	Path             string `json:"path"`
}

// Metadata carries the user-editable fields of a manifest. Nil fields are
// left unchanged by an update.
type Metadata struct {
	Name             *string    `json:"name,omitempty"`
	Version          *string    `json:"version,omitempty"`
	MinecraftVersion *string    `json:"minecraftVersion,omitempty"`
	Modloader        *Modloader `json:"modloader,omitempty"`
	Author           *string    `json:"author,omitempty"`
	Description      *string    `json:"description,omitempty"`
	RequiredRAM      *string    `json:"requiredRam,omitempty"`
	JavaVersion      *string    `json:"javaVersion,omitempty"`
}

// Apply merges the non-nil fields of md into m.
func (md Metadata) Apply(m *Modpack) {
	if md.Name != nil {
		m.Name = *md.Name
	}
	if md.Version != nil {
		m.Version = *md.Version
	}
	if md.MinecraftVersion != nil {
		m.MinecraftVersion = *md.MinecraftVersion
	}
	if md.Modloader != nil {
		m.Modloader = *md.Modloader
	}
	if md.Author != nil {
		m.Author = *md.Author
	}
	if md.Description != nil {
		m.Description = *md.Description
	}
	if md.RequiredRAM != nil {
		m.RequiredRAM = *md.RequiredRAM
	}
	if md.JavaVersion != nil {
		m.JavaVersion = *md.JavaVersion
	}
}
