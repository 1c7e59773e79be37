package validators

import "go.mongodb.org/mongo-driver/bson"

var ManagerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "config"},
		"additionalProperties": true,

		"properties": bson.M{
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"config": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"checkInterval":   bson.M{"bsonType": []string{"int", "long"}, "minimum": 1000},
					"maxWorkers":      bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
					"minWorkers":      bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
					"cpuThreshold":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 100},
					"memoryThreshold": bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 100},
					"workStartHour":   bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 23},
					"workEndHour":     bson.M{"bsonType": []string{"int", "long"}, "minimum": 0, "maximum": 24},
					"workers":         bson.M{"bsonType": "object"},
				},
			},

			"alerts":     bson.M{"bsonType": "array"},
			"history":    bson.M{"bsonType": "array"},
			"dailyStats": bson.M{"bsonType": "array"},
		},
	},
}
