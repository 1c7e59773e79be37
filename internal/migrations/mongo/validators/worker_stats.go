package validators

import "go.mongodb.org/mongo-driver/bson"

var WorkerStatsValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"workerType", "workerId"},
		"additionalProperties": true,

		"properties": bson.M{
			"workerType": bson.M{
				"enum": []string{"verification", "update", "stuck"},
			},

			"workerId": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"runHistory": bson.M{
				"bsonType": "array",
			},
		},
	},
}
