// Package sourcemap builds a JSON manifest describing how on-disk script
// files map onto the editor's container hierarchy. Generation is a full
// re-walk of the script root every time; there is no incremental update.
package sourcemap

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// Node classes referenced by the walk itself. Service containers use their
// directory name as the class (see serviceNames).
const (
	ClassProject      = "Project"
	ClassFolder       = "Folder"
	ClassScript       = "Script"
	ClassLocalScript  = "LocalScript"
	ClassModuleScript = "ModuleScript"
)

// RootName is the display name of the manifest root node.
const RootName = "Project"

// Node represents one editor container or script in the sourcemap tree.
// FilePaths is only set for nodes backed by an actual script file; Children
// keeps directory-read order, no sorting is applied.
type Node struct {
	Name      string   `json:"name"`
	ClassName string   `json:"className"`
	FilePaths []string `json:"filePaths,omitempty"`
	Children  []*Node  `json:"children,omitempty"`
}

func newNode(name, className string) *Node {
	return &Node{Name: name, ClassName: className}
}

// Generate walks the script root subdirectory (scriptDir, conventionally
// "game") under rootDir and returns the manifest tree. The walk is best
// effort: an unreadable directory contributes no children rather than
// failing the whole build, so a transient filesystem error never blocks
// manifest generation.
func Generate(rootDir, scriptDir string) *Node {
	root := newNode(RootName, ClassProject)

	entries, err := os.ReadDir(filepath.Join(rootDir, scriptDir))
	if err != nil {
		return root
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(rootDir, scriptDir, name)
		root.Children = append(root.Children, walkDirectory(path, name, serviceClass(name)))
	}

	return root
}

// Marshal renders a manifest tree in its wire form.
func Marshal(root *Node) ([]byte, error) {
	return json.MarshalIndent(root, "", "  ")
}

// walkDirectory builds the node for one directory and recurses into its
// children.
func walkDirectory(dirPath, name, className string) *Node {
	node := newNode(name, className)

	// Resolve init scripts designating this directory as a script node.
	// First match wins; a pre-resolved container class is kept, only a
	// generic Folder is upgraded to the script class.
	for _, init := range initScripts {
		path := filepath.Join(dirPath, init.filename)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			node.FilePaths = []string{path}
			if node.ClassName == ClassFolder {
				node.ClassName = init.className
			}
			break
		}
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return node
	}

	for _, entry := range entries {
		entryName := entry.Name()
		entryPath := filepath.Join(dirPath, entryName)

		if entry.IsDir() {
			childClass := childDirClass(name, entryName)
			node.Children = append(node.Children, walkDirectory(entryPath, entryName, childClass))
			continue
		}

		// Init scripts were consumed by the parent resolution above.
		if strings.HasPrefix(entryName, "init.") {
			continue
		}

		scriptName, scriptClass, ok := parseScriptName(entryName)
		if !ok {
			continue
		}

		child := newNode(scriptName, scriptClass)
		child.FilePaths = []string{entryPath}
		node.Children = append(node.Children, child)
	}

	return node
}
