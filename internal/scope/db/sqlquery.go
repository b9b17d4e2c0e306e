package db

import "fmt"

const movieColumns = `id, title, description, rating, release_date, duration, director,
	cast_members, genres, poster, imdb_rank, created_at, updated_at`

var sortColumns = map[SortField]string{
	SortTitle:       "title",
	SortRating:      "rating",
	SortReleaseDate: "release_date",
	SortDuration:    "duration",
	SortImdbRank:    "imdb_rank",
}

// orderClause builds the ORDER BY for normalized opts. imdb_rank is NULL for
// unranked movies so NULLS LAST keeps them at the end in both directions.
// Text columns use collate to match byte-order comparison.
func orderClause(opts ListOptions, collate string) string {
	col := sortColumns[opts.Sort]
	if opts.Sort == SortTitle && collate != "" {
		col += " COLLATE " + collate
	}
	dir := "ASC"
	if opts.Order == OrderDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s NULLS LAST, created_at ASC, id ASC", col, dir)
}

func nullableRank(rank int) any {
	if rank <= 0 {
		return nil
	}
	return rank
}
