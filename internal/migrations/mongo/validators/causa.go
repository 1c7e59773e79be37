package validators

import "go.mongodb.org/mongo-driver/bson"

// CausaValidator is permissive: workers write extra fields the API never
// reads, so only the identity and bookkeeping fields are typed.
var CausaValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"cuij", "createdAt"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"cuij": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"numero": bson.M{
				"bsonType": []string{"int", "long", "double"},
				"minimum":  0,
			},

			"anio": bson.M{
				"bsonType": []string{"int", "long", "double"},
				"minimum":  0,
			},

			"verified": bson.M{
				"bsonType": "bool",
			},

			"isValid": bson.M{
				"bsonType": []string{"bool", "null"},
			},

			"isPrivate": bson.M{
				"bsonType": "bool",
			},

			"detailsLoaded": bson.M{
				"bsonType": "bool",
			},

			"folderIds": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "objectId"},
			},

			"userCausaIds": bson.M{
				"bsonType": "array",
				"items":    bson.M{"bsonType": "objectId"},
			},

			"userUpdatesEnabled": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"userId", "enabled"},
					"properties": bson.M{
						"userId":  bson.M{"bsonType": "objectId"},
						"enabled": bson.M{"bsonType": "bool"},
					},
				},
			},

			"errorCount": bson.M{
				"bsonType": []string{"int", "long", "double"},
				"minimum":  0,
			},

			"lockedBy": bson.M{
				"bsonType": []string{"string", "null"},
			},

			"lockedAt": bson.M{
				"bsonType": []string{"date", "null"},
			},

			"lockToken": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"isPivot": bson.M{
				"bsonType": "bool",
			},

			"resolved": bson.M{
				"bsonType": "bool",
			},

			"createdAt": bson.M{
				"bsonType": "date",
			},

			"updatedAt": bson.M{
				"bsonType": "date",
			},
		},
	},
}
