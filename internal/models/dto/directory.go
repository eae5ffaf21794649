package dto

type DepartmentRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	ManagerID   *int64  `json:"manager_id"`
}

type JobTitleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// DataResponse wraps directory payloads as {"data": ...}.
type DataResponse struct {
	Data any `json:"data"`
}
