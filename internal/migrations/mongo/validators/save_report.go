package validators

import "go.mongodb.org/mongo-driver/bson"

var SaveReportValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"subject",
			"date",
			"outcomes",
			"succeeded",
			"failed",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"subject": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 320,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"outcomes": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"slot_id", "local_time", "action", "is_available", "succeeded"},
					"properties": bson.M{
						"slot_id": bson.M{
							"bsonType": []string{"int", "long"},
						},
						"local_time": bson.M{
							"bsonType": "string",
						},
						"action": bson.M{
							"enum": []string{"create", "update"},
						},
						"is_available": bson.M{
							"bsonType": "bool",
						},
						"succeeded": bson.M{
							"bsonType": "bool",
						},
						"error": bson.M{
							"bsonType": "string",
						},
					},
				},
			},

			"succeeded": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"failed": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
