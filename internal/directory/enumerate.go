package directory

import (
	"context"
	"fmt"

	"github.com/kantai/blockstack-search-indexer/internal/model"
)

// progressInterval controls how often page progress is logged.
const progressInterval = 10

// Enumerate walks the paginated listing for kind until an empty page or the
// page cap. Pages are requested strictly in sequence: the next page is asked
// for only once the prior page's result is known. Names are returned in page
// order, duplicates kept.
//
// A negative pageCap fetches everything; pageCap N stops before page N, so
// zero returns an empty sequence without a single request. A failed page
// fetch is not retried here: it aborts enumeration and the caller decides
// whether the run survives.
func (c *Client) Enumerate(ctx context.Context, kind model.NameKind, pageCap int) ([]string, error) {
	var names []string
	for page := 0; pageCap < 0 || page < pageCap; page++ {
		batch, err := c.ListPage(ctx, kind, page)
		if err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", kind, page, err)
		}
		if len(batch) == 0 {
			break
		}
		names = append(names, batch...)
		c.metrics.ObservePage(string(kind), len(batch))
		if (page+1)%progressInterval == 0 {
			c.logger.Info("enumeration progress",
				"kind", string(kind),
				"pages", page+1,
				"names", len(names),
			)
		}
	}
	c.logger.Info("enumeration complete", "kind", string(kind), "names", len(names))
	return names, nil
}
