package data

import (
	_ "embed"
)

//go:embed topics.json
var TopicsSeed string
