package latex

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/halcyonlab/textran/internal/apperrors"
	"github.com/halcyonlab/textran/internal/logger"
)

// Project holds the parsed sources of a LaTeX project rooted at a main file.
// Sources is keyed by the file name relative to the project root, with the
// .tex extension. AuxOrder lists the auxiliary sources in the order they were
// first referenced from the main file.
type Project struct {
	RootDir    string
	MainSource string
	Sources    map[string][]Node
	AuxOrder   []string
}

// Load parses mainSource under rootDir and recursively resolves every
// \input and \include reference into Project.Sources. A reference to a file
// that does not exist, a parse failure, or an include cycle all fail the load.
func Load(rootDir, mainSource string) (*Project, error) {
	proj := &Project{
		RootDir:    rootDir,
		MainSource: mainSource,
		Sources:    make(map[string][]Node),
	}
	if err := proj.load(mainSource, map[string]bool{}); err != nil {
		return nil, err
	}
	return proj, nil
}

func (p *Project) load(name string, visiting map[string]bool) error {
	if visiting[name] {
		return apperrors.New(apperrors.KindValidation, "include cycle through "+name, nil)
	}
	if _, ok := p.Sources[name]; ok {
		return nil
	}
	visiting[name] = true
	defer delete(visiting, name)

	data, err := os.ReadFile(filepath.Join(p.RootDir, name))
	if err != nil {
		return apperrors.New(apperrors.KindValidation, "cannot read source "+name, err)
	}
	nodes, err := Parse(string(data))
	if err != nil {
		return apperrors.New(apperrors.KindValidation, "cannot parse source "+name, err)
	}
	p.Sources[name] = nodes
	if name != p.MainSource {
		p.AuxOrder = append(p.AuxOrder, name)
	}
	logger.Debug("parsed source", "file", name, "nodes", len(nodes))

	for _, ref := range collectIncludes(nodes) {
		if err := p.load(ref, visiting); err != nil {
			return err
		}
	}
	return nil
}

// collectIncludes walks nodes depth first and returns the referenced source
// file names, normalized to carry the .tex extension.
func collectIncludes(nodes []Node) []string {
	var refs []string
	var walk func([]Node)
	walk = func(ns []Node) {
		for _, n := range ns {
			switch n.Kind {
			case NodeCommand:
				if (n.Name == "input" || n.Name == "include") && len(n.Args) > 0 {
					ref := strings.TrimSpace(n.Args[0])
					if ref == "" {
						continue
					}
					if filepath.Ext(ref) == "" {
						ref += ".tex"
					}
					refs = append(refs, ref)
				}
			case NodeEnv:
				walk(n.Children)
			}
		}
	}
	walk(nodes)
	return refs
}
