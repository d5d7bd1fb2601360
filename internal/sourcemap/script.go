package sourcemap

import "strings"

// ScriptExtension is the recognized script file extension.
const ScriptExtension = ".luau"

// serviceNames are the well-known top-level container directories. A
// directory under the script root with one of these exact names maps to the
// service class of the same name; anything else is a plain Folder.
var serviceNames = []string{
	"ServerScriptService",
	"ReplicatedStorage",
	"StarterPlayer",
	"StarterGui",
	"ReplicatedFirst",
	"SoundService",
	"Chat",
	"Lighting",
	"MaterialService",
	"HttpService",
	"Workspace",
}

// starterPlayerChildren are the specialized containers that only exist
// directly under StarterPlayer.
var starterPlayerChildren = []string{
	"StarterPlayerScripts",
	"StarterCharacterScripts",
}

// initScripts are the filenames that designate a directory itself as a
// script node, in resolution priority order (first match wins).
var initScripts = []struct {
	filename  string
	className string
}{
	{"init.server" + ScriptExtension, ClassScript},
	{"init.client" + ScriptExtension, ClassLocalScript},
	{"init" + ScriptExtension, ClassModuleScript},
}

// serviceClass resolves a top-level directory name to its container class.
// The match is exact and case-sensitive.
func serviceClass(name string) string {
	for _, svc := range serviceNames {
		if name == svc {
			return svc
		}
	}
	return ClassFolder
}

// childDirClass resolves a child directory's class from its parent's name.
// StarterPlayer's two special subfolders keep their own class; everything
// else starts out as a Folder and may be upgraded by an init script.
func childDirClass(parentName, name string) string {
	if parentName == "StarterPlayer" {
		for _, special := range starterPlayerChildren {
			if name == special {
				return special
			}
		}
	}
	return ClassFolder
}

// parseScriptName splits a script filename into its display name and class.
// For example: Shop.server.luau -> ("Shop", "Script"). Returns ok=false for
// files that do not carry the script extension.
func parseScriptName(filename string) (name, className string, ok bool) {
	if stem, found := strings.CutSuffix(filename, ".server"+ScriptExtension); found {
		return stem, ClassScript, true
	}
	if stem, found := strings.CutSuffix(filename, ".client"+ScriptExtension); found {
		return stem, ClassLocalScript, true
	}
	if stem, found := strings.CutSuffix(filename, ScriptExtension); found {
		return stem, ClassModuleScript, true
	}
	return "", "", false
}
