package api

type ApplicationServersRequest struct {
	SessionCase string `json:"session_case" binding:"required"`
	Registered  *bool  `json:"registered,omitempty"`
	Message     string `json:"message" binding:"required"`
}

type ApplicationServersResponse struct {
	ServedUser         string   `json:"served_user"`
	ApplicationServers []string `json:"application_servers"`
}

type RequestURIRequest struct {
	Message string `json:"message" binding:"required"`
}

type RequestURIResponse struct {
	URI        string `json:"uri"`
	Translated bool   `json:"translated"`
}

type EnumResponse struct {
	Number string `json:"number"`
	URI    string `json:"uri"`
}

type BGCFResponse struct {
	Domain string `json:"domain"`
	Route  string `json:"route"`
}
