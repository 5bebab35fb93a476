package models

// ServiceResponse is the envelope of every JSON response, exactly one of Data or Error is set
type ServiceResponse[T any] struct {
	Data      *T     `json:"data"`
	Error     string `json:"error"`
	RequestId string `json:"requestId,omitempty"`
}

func GetServiceResponseOk[T any](data *T) ServiceResponse[T] {
	return ServiceResponse[T]{
		Data:  data,
		Error: "",
	}
}

func GetServiceResponseError(errorMessage string) ServiceResponse[any] {
	return ServiceResponse[any]{
		Data:  nil,
		Error: errorMessage,
	}
}

// WithRequestId tags the envelope with the id assigned by the router
func (sr ServiceResponse[T]) WithRequestId(id string) ServiceResponse[T] {
	sr.RequestId = id
	return sr
}
