package compiler

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// reconcile drops the index rows of paths no pass output claimed, then removes
// every artifact that no remaining row references. It must run after the new
// rows and files are in place.
func (c *Compiler) reconcile(ctx context.Context, p *pass) error {
	paths := p.outdatedPaths()
	sort.Strings(paths)

	remaining, err := c.index.DeletePaths(ctx, paths)
	if err != nil {
		return eris.Wrap(err, "deleting outdated compiled pages")
	}
	for _, path := range paths {
		p.logger.WithField("path", path).Info("Removed outdated page")
	}
	p.summary.Removed = len(paths)

	referenced := make(map[string]struct{}, len(remaining))
	for _, entry := range remaining {
		referenced[entry.Hash] = struct{}{}
	}

	files, err := p.writer.sweep(referenced, p.logger)
	if err != nil {
		return eris.Wrap(err, "removing unreferenced page files")
	}
	p.summary.FilesRemoved = files

	if files > 0 {
		p.logger.WithFields(logrus.Fields{"files": files}).Debug("Swept page files")
	}
	return nil
}
