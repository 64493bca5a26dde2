package profile

var BuildUpsert = buildUpsert
