package db

import "time"

func releaseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// SeedMovies returns the built-in starter catalog, ranked 1..n
func SeedMovies() []Movie {
	return []Movie{
		{
			Title:       "The Shawshank Redemption",
			Description: "Two imprisoned men bond over a number of years, finding solace and eventual redemption through acts of common decency.",
			Rating:      9.3,
			ReleaseDate: releaseDate("1994-09-23"),
			Duration:    142,
			Director:    "Frank Darabont",
			Cast:        []string{"Tim Robbins", "Morgan Freeman", "Bob Gunton"},
			Genres:      []string{"Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BNDE3ODcxYzMtY2YzZC00NmNlLWJiNDMtZDViZWM2MzIxZDYwXkEyXkFqcGdeQXVyNjAwNDUxODI@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    1,
		},
		{
			Title:       "The Godfather",
			Description: "The aging patriarch of an organized crime dynasty transfers control of his clandestine empire to his reluctant son.",
			Rating:      9.2,
			ReleaseDate: releaseDate("1972-03-24"),
			Duration:    175,
			Director:    "Francis Ford Coppola",
			Cast:        []string{"Marlon Brando", "Al Pacino", "James Caan"},
			Genres:      []string{"Crime", "Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BM2MyNjYxNmUtYTAwNi00MTYxLWJmNWYtYzZlODY3ZTk3OTFlXkEyXkFqcGdeQXVyNzkwMjQ5NzM@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    2,
		},
		{
			Title:       "The Dark Knight",
			Description: "When the menace known as the Joker wreaks havoc and chaos on the people of Gotham, Batman must accept one of the greatest psychological and physical tests of his ability to fight injustice.",
			Rating:      9.0,
			ReleaseDate: releaseDate("2008-07-18"),
			Duration:    152,
			Director:    "Christopher Nolan",
			Cast:        []string{"Christian Bale", "Heath Ledger", "Aaron Eckhart"},
			Genres:      []string{"Action", "Crime", "Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BMTMxNTMwODM0NF5BMl5BanBnXkFtZTcwODAyMTk2Mw@@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    3,
		},
		{
			Title:       "The Godfather Part II",
			Description: "The early life and career of Vito Corleone in 1920s New York City is portrayed, while his son, Michael, expands and tightens his grip on the family crime syndicate.",
			Rating:      9.0,
			ReleaseDate: releaseDate("1974-12-20"),
			Duration:    202,
			Director:    "Francis Ford Coppola",
			Cast:        []string{"Al Pacino", "Robert De Niro", "Robert Duvall"},
			Genres:      []string{"Crime", "Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BMWMwMGQzZTItY2JlNC00OWZiLWIyMDctNDk2ZDQ2YjRjMWQ0XkEyXkFqcGdeQXVyNzkwMjQ5NzM@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    4,
		},
		{
			Title:       "12 Angry Men",
			Description: "A jury holdout attempts to prevent a miscarriage of justice by forcing his colleagues to reconsider the evidence.",
			Rating:      9.0,
			ReleaseDate: releaseDate("1957-04-10"),
			Duration:    96,
			Director:    "Sidney Lumet",
			Cast:        []string{"Henry Fonda", "Lee J. Cobb", "Martin Balsam"},
			Genres:      []string{"Crime", "Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BMWU4N2FjNzYtNTVkNC00NzQ0LTg0MjAtYTJlMjFhNGUxZDFmXkEyXkFqcGdeQXVyNjc1NTYyMjg@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    5,
		},
		{
			Title:       "Schindler's List",
			Description: "In German-occupied Poland during World War II, industrialist Oskar Schindler gradually becomes concerned for his Jewish workforce after witnessing their persecution by the Nazis.",
			Rating:      9.0,
			ReleaseDate: releaseDate("1993-12-15"),
			Duration:    195,
			Director:    "Steven Spielberg",
			Cast:        []string{"Liam Neeson", "Ralph Fiennes", "Ben Kingsley"},
			Genres:      []string{"Biography", "Drama", "History"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BNDE4OTMxMTctNmRhYy00NWE2LTg3YzItYTk3M2UwOTU5Njg4XkEyXkFqcGdeQXVyNjU0OTQ0OTY@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    6,
		},
		{
			Title:       "The Lord of the Rings: The Return of the King",
			Description: "Gandalf and Aragorn lead the World of Men against Sauron's army to draw his gaze from Frodo and Sam as they approach Mount Doom with the One Ring.",
			Rating:      9.0,
			ReleaseDate: releaseDate("2003-12-17"),
			Duration:    201,
			Director:    "Peter Jackson",
			Cast:        []string{"Elijah Wood", "Viggo Mortensen", "Ian McKellen"},
			Genres:      []string{"Action", "Adventure", "Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BNzA5ZDNlZWMtM2NhNS00NDJjLTk4NDItYTRmY2EwMWZlMTY3XkEyXkFqcGdeQXVyNzkwMjQ5NzM@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    7,
		},
		{
			Title:       "Pulp Fiction",
			Description: "The lives of two mob hitmen, a boxer, a gangster and his wife intertwine in four tales of violence and redemption.",
			Rating:      8.9,
			ReleaseDate: releaseDate("1994-10-14"),
			Duration:    154,
			Director:    "Quentin Tarantino",
			Cast:        []string{"John Travolta", "Uma Thurman", "Samuel L. Jackson"},
			Genres:      []string{"Crime", "Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BNGNhMDIzZTUtNTBlZi00MTRlLWFjM2ItYzViMjE3YzI5MjljXkEyXkFqcGdeQXVyNzkwMjQ5NzM@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    8,
		},
		{
			Title:       "The Lord of the Rings: The Fellowship of the Ring",
			Description: "A meek Hobbit from the Shire and eight companions set out on a journey to destroy the powerful One Ring and save Middle-earth from the Dark Lord Sauron.",
			Rating:      8.8,
			ReleaseDate: releaseDate("2001-12-19"),
			Duration:    178,
			Director:    "Peter Jackson",
			Cast:        []string{"Elijah Wood", "Ian McKellen", "Orlando Bloom"},
			Genres:      []string{"Action", "Adventure", "Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BN2EyZjM3NzUtNWUzMi00MTgxLWI0NTctMzY4M2VlOTdjZWRiXkEyXkFqcGdeQXVyNDUzOTQ5MjY@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    9,
		},
		{
			Title:       "Forrest Gump",
			Description: "The presidencies of Kennedy and Johnson, the Vietnam War, and other historical events unfold from the perspective of an Alabama man with an IQ of 75.",
			Rating:      8.8,
			ReleaseDate: releaseDate("1994-07-06"),
			Duration:    142,
			Director:    "Robert Zemeckis",
			Cast:        []string{"Tom Hanks", "Robin Wright", "Gary Sinise"},
			Genres:      []string{"Drama", "Romance"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BNWIwODRlZTUtY2U3ZS00Yzg1LWJhNzYtMmZiYmEyNmU1NjMzXkEyXkFqcGdeQXVyMTQxNzMzNDI@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    10,
		},
		{
			Title:       "Inception",
			Description: "A thief who steals corporate secrets through the use of dream-sharing technology is given the inverse task of planting an idea into the mind of a C.E.O.",
			Rating:      8.8,
			ReleaseDate: releaseDate("2010-07-16"),
			Duration:    148,
			Director:    "Christopher Nolan",
			Cast:        []string{"Leonardo DiCaprio", "Joseph Gordon-Levitt", "Elliot Page"},
			Genres:      []string{"Action", "Sci-Fi", "Thriller"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BMjAxMzY3NjcxNF5BMl5BanBnXkFtZTcwNTI5OTM0Mw@@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    11,
		},
		{
			Title:       "Fight Club",
			Description: "An insomniac office worker and a devil-may-care soap maker form an underground fight club that evolves into much more.",
			Rating:      8.8,
			ReleaseDate: releaseDate("1999-10-15"),
			Duration:    139,
			Director:    "David Fincher",
			Cast:        []string{"Brad Pitt", "Edward Norton", "Meat Loaf"},
			Genres:      []string{"Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BNDIzNDU0YzEtYzE5Ni00ZjlkLTk5ZjgtNjM3NWE4YzA3Nzk3XkEyXkFqcGdeQXVyMjUzOTY1NTc@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    12,
		},
		{
			Title:       "The Matrix",
			Description: "When a beautiful stranger leads computer hacker Neo to a forbidding underworld, he discovers the shocking truth--the life he knows is the elaborate deception of an evil cyber-intelligence.",
			Rating:      8.7,
			ReleaseDate: releaseDate("1999-03-31"),
			Duration:    136,
			Director:    "Lana Wachowski, Lilly Wachowski",
			Cast:        []string{"Keanu Reeves", "Laurence Fishburne", "Carrie-Anne Moss"},
			Genres:      []string{"Action", "Sci-Fi"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BNzQzOTk3OTAtNDQ0Zi00ZTVkLWI0MTEtMDllZjNkYzNjNTc4L2ltYWdlXkEyXkFqcGdeQXVyNjU0OTQ0OTY@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    13,
		},
		{
			Title:       "Goodfellas",
			Description: "The story of Henry Hill and his life in the mob, covering his relationship with his wife Karen Hill and his mob partners Jimmy Conway and Tommy DeVito.",
			Rating:      8.7,
			ReleaseDate: releaseDate("1990-09-19"),
			Duration:    145,
			Director:    "Martin Scorsese",
			Cast:        []string{"Robert De Niro", "Ray Liotta", "Joe Pesci"},
			Genres:      []string{"Biography", "Crime", "Drama"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BY2NkZjEzMDgtN2RjYy00YzM1LWI4ZmQtMjIwYjFjNmI3ZGEwXkEyXkFqcGdeQXVyNzkwMjQ5NzM@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    14,
		},
		{
			Title:       "Interstellar",
			Description: "A team of explorers travel through a wormhole in space in an attempt to ensure humanity's survival.",
			Rating:      8.7,
			ReleaseDate: releaseDate("2014-11-07"),
			Duration:    169,
			Director:    "Christopher Nolan",
			Cast:        []string{"Matthew McConaughey", "Anne Hathaway", "Jessica Chastain"},
			Genres:      []string{"Adventure", "Drama", "Sci-Fi"},
			Poster:      "https://m.media-amazon.com/images/M/MV5BZjdkOTU3MDktN2IxOS00OGEyLWFmMjktY2FiMmZkNWIyODZiXkEyXkFqcGdeQXVyMTMxODk2OTU@._V1_FMjpg_UX1000_.jpg",
			ImdbRank:    15,
		},
	}
}
