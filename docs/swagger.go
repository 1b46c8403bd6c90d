// Package docs Territory Service API.
//
// Сервис геометрии территорий для планирования обхода: проверка нарисованных границ
// на пересечения, разбиение территорий на блоки, оценка зданий и улиц в блоке
// и каскадный поиск мест Канады (провинция, муниципалитет, район, улицы).
//
//	Schemes: http, https
//	BasePath: /
//	Version: 1.0.0
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//
// swagger:meta
package docs
