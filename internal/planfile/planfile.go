// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file implements plan discovery and format dispatch.
//
// Why accept a directory as the plan path?
//
// Real plans outgrow single files. A user researching a broad topic will
// split sub-plans across files and keep them in one directory, and because
// query ids are global to the whole plan, a query in one file can depend on
// a query in another. Loading is therefore defined over a path, not a file:
// point it at one file and you get that file's queries, point it at a
// directory and you get the consolidated plan. The graph builder downstream
// sees no difference.
package planfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/queryplango/internal/ctxlog"
	"github.com/vk/queryplango/internal/fsutil"
	"github.com/vk/queryplango/internal/plan"
)

// Load reads every plan file reachable from path, which may name a single
// .hcl or .json file or a directory tree containing them. Nodes from all
// files are concatenated in walk order.
func Load(ctx context.Context, path string) ([]plan.Node, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading plan from path.", "path", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan path %s: %w", path, err)
	}
	if !info.IsDir() {
		if ext := filepath.Ext(path); ext != ".hcl" && ext != ".json" {
			return nil, fmt.Errorf("unsupported plan format %q: plan files must end in .hcl or .json", ext)
		}
	}

	files, err := fsutil.FindFilesByExtensions(path, ".hcl", ".json")
	if err != nil {
		return nil, fmt.Errorf("failed to find plan files in %s: %w", path, err)
	}
	if len(files) == 0 {
		logger.Warn("No plan files found in path, returning empty plan.", "path", path)
		return nil, nil
	}

	parser := hclparse.NewParser()
	var nodes []plan.Node
	for _, file := range files {
		var fileNodes []plan.Node
		switch {
		case strings.HasSuffix(file, ".hcl"):
			fileNodes, err = loadHCLFile(file, parser)
		case strings.HasSuffix(file, ".json"):
			fileNodes, err = loadJSONFile(file)
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, fileNodes...)
	}

	logger.Debug("Plan loaded.", "files", len(files), "queries", len(nodes))
	return nodes, nil
}
