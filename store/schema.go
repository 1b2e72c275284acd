package store

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sicko7947/usecasekit"
)

// DynamoDB schema constants for the single-table design
const (
	// Table attributes
	AttrOwnerKey  = "id"
	AttrDataType  = "dataType"
	AttrUseCaseID = "useCaseId"
	AttrIsShared  = "isShared"

	// Body attributes rewritten by a content update
	AttrTitle          = "title"
	AttrDescription    = "description"
	AttrPromptTemplate = "promptTemplate"
	AttrInputExamples  = "inputExamples"
	AttrFixedModelID   = "fixedModelId"
	AttrFileUpload     = "fileUpload"
)

// Item layout:
//
//	body:         id=useCase#{userID}  dataType=useCase#{ts}       useCaseId, content, isShared
//	favorite:     id=useCase#{userID}  dataType=favorite#{ts}      useCaseId
//	recentlyUsed: id=useCase#{userID}  dataType=recentlyUsed#{ts}  useCaseId
//
// The use case id index is keyed by useCaseId (hash) and dataType (range), so a
// begins_with(dataType, "useCase#") condition isolates the single body item.

func keyAttributes(key usecasekit.ItemKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		AttrOwnerKey: &types.AttributeValueMemberS{Value: key.OwnerKey},
		AttrDataType: &types.AttributeValueMemberS{Value: key.SortKey},
	}
}

func bodyPrefix() string {
	return usecasekit.SortKeyPrefix(usecasekit.RelationUseCase)
}
