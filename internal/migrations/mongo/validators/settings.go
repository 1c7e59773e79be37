package validators

import "go.mongodb.org/mongo-driver/bson"

var SettingsValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "enabled"},
		"additionalProperties": true,

		"properties": bson.M{
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"enabled": bson.M{
				"bsonType": "bool",
			},

			"workerCount": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"batchSize": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"schedule": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"startHour": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 23},
					"endHour":   bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 24},
					"workDays": bson.M{
						"bsonType": "array",
						"maxItems": 7,
						"items":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 6},
					},
					"timezone": bson.M{"bsonType": "string"},
				},
			},

			"updatedAt": bson.M{
				"bsonType": "date",
			},
		},
	},
}
