package nedb

import "github.com/justlep/nedb/internal/model"

// Remove deletes every document matching query (or only the first, in
// candidate order, unless multi is set), appending one `$$deleted` marker
// per removed document, and reports the number removed.
func (c *Collection) Remove(query model.Doc, multi bool) (int, error) {
	var n int
	err := c.exec.Submit(func() error {
		count, err := c.removeSync(query, multi)
		n = count
		return err
	})
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (c *Collection) removeSync(query model.Doc, multi bool) (int, error) {
	candidates, err := c.getCandidates(query, true)
	if err != nil {
		return 0, err
	}

	var toRemove []model.Doc
	for _, doc := range candidates {
		matched, err := model.MatchQuery(doc, query, c.strCmp)
		if err != nil {
			return 0, err
		}
		if !matched {
			continue
		}
		toRemove = append(toRemove, doc)
		if !multi {
			break
		}
	}

	if len(toRemove) == 0 {
		return 0, nil
	}

	c.removeFromAllIndexes(toRemove)

	ids := make([]string, len(toRemove))
	for i, d := range toRemove {
		id, _ := d["_id"].(string)
		ids[i] = id
	}

	if err := c.log.PersistRemovals(ids); err != nil {
		_ = c.addToAllIndexes(toRemove) // re-insert of just-removed documents cannot fail
		return 0, err
	}

	return len(toRemove), nil
}
