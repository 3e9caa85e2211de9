package artcache

// DefaultCatalog is shown when the catalog can be read neither from the
// store nor from the origin.
func DefaultCatalog() []Item {
	return []Item{
		{
			ID:          "1",
			Title:       "Harbor at Dawn",
			Price:       420,
			Category:    "Painting",
			Image:       "/static/artworks/harbor-at-dawn.jpg",
			Description: "Oil on canvas, 60 x 80 cm.",
			Artist:      "M. Lindqvist",
			Year:        2019,
		},
		{
			ID:          "2",
			Title:       "Quiet Forms",
			Price:       310,
			Category:    "Sculpture",
			Image:       "/static/artworks/quiet-forms.jpg",
			Description: "Glazed stoneware, 35 cm.",
			Artist:      "A. Okafor",
			Year:        2021,
		},
		{
			ID:          "3",
			Title:       "Northern Light Study",
			Price:       150,
			Category:    "Photography",
			Image:       "/static/artworks/northern-light-study.jpg",
			Description: "Archival pigment print, edition of 25.",
			Artist:      "J. Virtanen",
			Year:        2022,
		},
		{
			ID:          "4",
			Title:       "Ink Garden",
			Price:       95,
			Category:    "Print",
			Image:       "/static/artworks/ink-garden.jpg",
			Description: "Linocut on Japanese paper, 30 x 40 cm.",
			Artist:      "S. Park",
			Year:        2020,
		},
	}
}
